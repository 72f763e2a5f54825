package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/ride-pooling/internal/geo"
	"github.com/example/ride-pooling/internal/models"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total request events consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	mirrorUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_mirror_updates_total",
		Help: "Total successful geo mirror updates",
	})
	mirrorErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_mirror_errors_total",
		Help: "Total geo mirror errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, mirrorUpdates, mirrorErrors)
}

func main() {
	// allow some flags for local runs
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokersEnv := os.Getenv("KAFKA_BROKERS")
	if brokersEnv == "" {
		brokersEnv = os.Getenv("KAFKA_BROKER")
	}
	brokers := []string{}
	if brokersEnv != "" {
		for _, b := range strings.Split(brokersEnv, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	} else {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "request-events"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "ride-pooling-consumer"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	geoKey := os.Getenv("REDIS_GEO_KEY")
	if geoKey == "" {
		geoKey = "pending_request_origins"
	}
	mirror := geo.NewRedisGeo(redisAddr, os.Getenv("REDIS_PASSWORD"), geoKey)

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			// readiness: check redis connectivity
			if err := mirror.Ping(r.Context()); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		log.Printf("metrics/health listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = mirror.Close()
	}()

	log.Printf("consumer listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		msgsConsumed.Inc()

		var ev models.RequestEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			msgsInvalid.Inc()
			log.Printf("invalid message: %v", err)
			continue
		}

		if err := applyEventWithRetry(ctx, mirror, ev, 3, 200*time.Millisecond); err != nil {
			mirrorErrors.Inc()
			log.Printf("mirror update failed for request=%s: %v", ev.Request.ID, err)
			continue
		}
		mirrorUpdates.Inc()
	}
}

// GeoMirror is the subset of geo operations the consumer needs; kept small so
// tests can fake it.
type GeoMirror interface {
	Add(ctx context.Context, req models.Request) error
	Remove(ctx context.Context, requestID string) error
}

// applyEventWithRetry keeps the pending-origin mirror in sync: submissions add
// an origin, settlement events (matched, cancelled) remove it. Transient
// failures retry with exponential delay.
func applyEventWithRetry(ctx context.Context, mirror GeoMirror, ev models.RequestEvent, attempts int, delay time.Duration) error {
	apply := func() error {
		switch ev.Type {
		case "submitted":
			return mirror.Add(ctx, ev.Request)
		case "cancelled", "matched":
			return mirror.Remove(ctx, ev.Request.ID)
		default:
			log.Printf("ignoring event type %q", ev.Type)
			return nil
		}
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = apply(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}

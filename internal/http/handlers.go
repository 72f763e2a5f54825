package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-pooling/internal/config"
	"github.com/example/ride-pooling/internal/dispatch"
	"github.com/example/ride-pooling/internal/gate"
	"github.com/example/ride-pooling/internal/geo"
	"github.com/example/ride-pooling/internal/ingest"
	"github.com/example/ride-pooling/internal/matcher"
	"github.com/example/ride-pooling/internal/models"
	"github.com/example/ride-pooling/internal/payments"
	"github.com/example/ride-pooling/internal/storage"
)

type Server struct {
	cfg     config.ServerConfig
	logger  *slog.Logger
	store   storage.Store
	engine  *matcher.Service
	redis   *geo.RedisGeo
	kafka   *ingest.KafkaProducer
	wsreg   *dispatch.WSRegistry
	billing *payments.StripeClient
	mux     *mux.Router
}

// New wires the server from config: Postgres when a DSN is set, otherwise the
// in-memory store; Redis, Kafka and Stripe only when configured.
func New(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	var store storage.Store
	if cfg.PGDSN != "" {
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		store = ps
	} else {
		store = storage.NewMemoryStore()
	}

	var rg *geo.RedisGeo
	if cfg.RedisAddr != "" {
		rg = geo.NewRedisGeo(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := dispatch.NewWSRegistry(logger)
	var notifier matcher.Notifier
	if cfg.PushEndpoint != "" {
		notifier = dispatch.NewPushNotifier(cfg.PushEndpoint, wsreg)
	} else {
		notifier = &fallbackNotifier{ws: wsreg, log: &dispatch.LogNotifier{Logger: logger}}
	}

	engine := &matcher.Service{
		Store:           store,
		Gate:            gate.NewRegistry(),
		Notifier:        notifier,
		SeatsTotal:      cfg.SeatsTotal,
		LuggageCapacity: cfg.LuggageCapacity,
		DemandFactor:    cfg.DemandFactor,
		Logger:          logger,
	}
	if kp != nil {
		engine.Events = kp
	}

	var billing *payments.StripeClient
	if cfg.StripeAPIKey != "" {
		billing = payments.NewStripeClient(cfg.StripeAPIKey, cfg.StripeCurrency)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		engine:  engine,
		redis:   rg,
		kafka:   kp,
		wsreg:   wsreg,
		billing: billing,
		mux:     mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/requests", s.handleSubmitRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/requests/pending", s.handleListPending).Methods("GET")
	s.mux.HandleFunc("/api/v1/requests/nearby", s.handleNearby).Methods("GET")
	s.mux.HandleFunc("/api/v1/requests/{request_id}/cancel", s.handleCancelRequest).Methods("POST")
	s.mux.HandleFunc("/api/v1/match/trigger", s.handleTriggerMatch).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}", s.handleGetRide).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/accept", s.handleAcceptRide).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type submitPayload struct {
	UserID            string       `json:"user_id"`
	Origin            models.Coord `json:"origin"`
	Destination       models.Coord `json:"destination"`
	Seats             int          `json:"seats"`
	Luggage           int          `json:"luggage"`
	DetourToleranceKm *float64     `json:"detour_tolerance_km"`
}

const defaultDetourToleranceKm = 5.0

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var p submitPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.Seats == 0 {
		p.Seats = 1
	}
	tolerance := defaultDetourToleranceKm
	if p.DetourToleranceKm != nil {
		tolerance = *p.DetourToleranceKm
	}
	if msg := s.validateSubmit(p, tolerance); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	req := models.Request{
		ID:                uuid.NewString(),
		UserID:            p.UserID,
		Origin:            p.Origin,
		Destination:       p.Destination,
		Seats:             p.Seats,
		Luggage:           p.Luggage,
		DetourToleranceKm: tolerance,
		CreatedAt:         time.Now().UTC(),
		Status:            models.RequestPending,
	}
	if err := s.store.CreateRequest(r.Context(), &req); err != nil {
		s.logger.Error("create request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if s.kafka != nil {
		_ = s.kafka.PublishRequestEvent(r.Context(), models.RequestEvent{Type: "submitted", Request: req})
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request_id": req.ID})
}

func (s *Server) validateSubmit(p submitPayload, tolerance float64) string {
	switch {
	case p.UserID == "":
		return "user_id is required"
	case p.Seats < 1:
		return "seats must be >= 1"
	case p.Seats > s.cfg.SeatsTotal:
		return "seats exceed vehicle capacity"
	case p.Luggage < 0:
		return "luggage must be >= 0"
	case p.Luggage > s.cfg.LuggageCapacity:
		return "luggage exceeds vehicle capacity"
	case tolerance < 0:
		return "detour_tolerance_km must be >= 0"
	case !validCoord(p.Origin) || !validCoord(p.Destination):
		return "coordinates out of range"
	}
	return ""
}

func validCoord(c models.Coord) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["request_id"]
	err := s.engine.CancelRequest(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "request not found")
	case errors.Is(err, storage.ErrInvalidState):
		writeError(w, http.StatusConflict, "request already finalized")
	case err != nil:
		s.logger.Error("cancel failed", "request_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"request_id": id, "status": models.RequestCancelled})
	}
}

func (s *Server) handleTriggerMatch(w http.ResponseWriter, r *http.Request) {
	rides, err := s.engine.TriggerMatch(r.Context())
	if err != nil {
		s.logger.Error("match run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "match run failed")
		return
	}
	ids := make([]string, len(rides))
	for i, ride := range rides {
		ids[i] = ride.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"created_rides": len(rides), "ride_ids": ids})
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.store.ListPendingRequests(r.Context())
	if err != nil {
		s.logger.Error("list pending failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	if s.redis == nil {
		writeError(w, http.StatusServiceUnavailable, "nearby lookup not configured")
		return
	}
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	limit := s.cfg.NearbyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	hits, err := s.redis.Nearby(r.Context(), lat, lon, s.cfg.NearbyRadiusKm, limit)
	if err != nil {
		s.logger.Error("nearby lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "redis error")
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ride_id"]
	ride, err := s.store.GetRide(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ride not found")
		return
	}
	if err != nil {
		s.logger.Error("get ride failed", "ride_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleAcceptRide(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["ride_id"]
	err := s.store.AcceptRide(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "ride not found")
		return
	case errors.Is(err, storage.ErrInvalidState):
		writeError(w, http.StatusConflict, "ride already accepted")
		return
	case err != nil:
		s.logger.Error("accept failed", "ride_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	s.holdFares(r, id)
	writeJSON(w, http.StatusOK, map[string]any{"ride_id": id, "status": models.RideAccepted})
}

// holdFares places best-effort payment holds for every member of an accepted
// ride. Billing failures are logged, never surfaced to the acceptance call.
func (s *Server) holdFares(r *http.Request, rideID string) {
	if s.billing == nil {
		return
	}
	ride, err := s.store.GetRide(r.Context(), rideID)
	if err != nil {
		s.logger.Error("load ride for billing failed", "ride_id", rideID, "error", err)
		return
	}
	for _, memberID := range ride.MemberIDs {
		req, err := s.store.GetRequest(r.Context(), memberID)
		if err != nil {
			s.logger.Error("load member for billing failed", "request_id", memberID, "error", err)
			continue
		}
		if _, err := s.billing.HoldFare(r.Context(), ride, req.UserID); err != nil {
			s.logger.Error("payment hold failed", "ride_id", rideID, "user_id", req.UserID, "error", err)
		}
	}
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "upgrade failed")
		return
	}
	s.wsreg.Add(userID, conn)
}

// fallbackNotifier delivers over a live websocket session when one exists and
// logs the notice otherwise.
type fallbackNotifier struct {
	ws  *dispatch.WSRegistry
	log *dispatch.LogNotifier
}

func (f *fallbackNotifier) NotifyProposal(userID string, n models.ProposalNotice) error {
	if err := f.ws.NotifyProposal(userID, n); err == nil {
		return nil
	}
	return f.log.NotifyProposal(userID, n)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

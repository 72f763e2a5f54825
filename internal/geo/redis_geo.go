package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-pooling/internal/models"
)

// RedisGeo mirrors pending request origins into a Redis GEO set so the API can
// answer "which pending requests start near here" without scanning the store.
// It is a read-side convenience only; the matcher never consults it.
type RedisGeo struct {
	client *redis.Client
	key    string
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

// NearbyRequest is a geo lookup hit: a pending request id plus its origin and
// the distance from the query point.
type NearbyRequest struct {
	RequestID  string       `json:"request_id"`
	UserID     string       `json:"user_id"`
	Origin     models.Coord `json:"origin"`
	DistanceKm float64      `json:"distance_km"`
}

func (r *RedisGeo) Add(ctx context.Context, req models.Request) error {
	if _, err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Longitude: req.Origin.Lon,
		Latitude:  req.Origin.Lat,
		Name:      req.ID,
	}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(req.ID), map[string]interface{}{
		"user_id": req.UserID,
		"seats":   strconv.Itoa(req.Seats),
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

// Remove drops a request from the mirror once it is matched or cancelled.
func (r *RedisGeo) Remove(ctx context.Context, requestID string) error {
	if err := r.client.ZRem(ctx, r.key, requestID).Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, metaKey(requestID)).Err()
}

func (r *RedisGeo) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]NearbyRequest, error) {
	res, err := r.client.GeoRadius(ctx, r.key, lon, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Count:     limit,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]NearbyRequest, 0, len(res))
	for _, g := range res {
		n := NearbyRequest{
			RequestID:  g.Name,
			Origin:     models.Coord{Lat: g.Latitude, Lon: g.Longitude},
			DistanceKm: g.Dist,
		}
		if m, err := r.client.HGetAll(ctx, metaKey(g.Name)).Result(); err == nil {
			n.UserID = m["user_id"]
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *RedisGeo) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisGeo) Close() error { return r.client.Close() }

func metaKey(id string) string { return "request:meta:" + id }

package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/ride-pooling/internal/models"
)

// FCMNotifier posts proposal notices to an FCM HTTPv1 endpoint using a server
// key or oauth token. Fire and forget.
type FCMNotifier struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMNotifier(endpoint, key string) *FCMNotifier {
	return &FCMNotifier{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMNotifier) NotifyProposal(userID string, n models.ProposalNotice) error {
	body := map[string]any{"message": map[string]any{
		"token": userID,
		"data":  map[string]any{"ride_id": n.RideID, "request_id": n.RequestID, "price": n.PricePerPassenger},
	}}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

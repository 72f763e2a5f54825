package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/ride-pooling/internal/models"
)

// PushNotifier tries the user's live websocket session first and falls back
// to POSTing the notice to a configured webhook (e.g. a mobile-push relay).
type PushNotifier struct {
	Endpoint string
	Client   *http.Client
	WS       *WSRegistry
}

func NewPushNotifier(endpoint string, ws *WSRegistry) *PushNotifier {
	return &PushNotifier{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}, WS: ws}
}

func (p *PushNotifier) NotifyProposal(userID string, n models.ProposalNotice) error {
	if p.WS != nil {
		if err := p.WS.NotifyProposal(userID, n); err == nil {
			return nil
		}
	}
	if p.Endpoint == "" {
		return ErrNoSession
	}
	body, _ := json.Marshal(map[string]any{"user_id": userID, "notice": n})
	resp, err := p.Client.Post(p.Endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

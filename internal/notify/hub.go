package notify

import (
	"context"
	"encoding/json"

	"github.com/Nguyentram30/Real-time-student-activity-management-CI-CD-Pipeline-sub000/internal/stream"
)

// HubDispatcher pushes notifications to websocket subscribers of the audience.
type HubDispatcher struct {
	Hub *stream.Hub
}

func (h HubDispatcher) Dispatch(ctx context.Context, n Notification) error {
	if h.Hub == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return h.Hub.Broadcast(ctx, n.TargetAudience, payload)
}

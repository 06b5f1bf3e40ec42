package events

import (
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The API sits behind the frontend proxy; origin checks happen there.
		return true
	},
}

// HandleWS upgrades the request and subscribes the connection to the
// project's stream. It returns once the pumps are running.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, projectID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(h, conn, projectID)
	h.Register(client)

	h.log.Debug("websocket connected", "project_id", projectID, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
	return nil
}

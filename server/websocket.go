package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/taglink/protocol"
)

// handleWebSocket upgrades the connection and serves write requests until
// the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	s.clientsMux.Lock()
	s.clients[conn] = true
	s.clientsMux.Unlock()
	log.Info().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")

	defer func() {
		s.clientsMux.Lock()
		delete(s.clients, conn)
		s.clientsMux.Unlock()
		conn.Close()
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client disconnected")
	}()

	for {
		var req protocol.WebSocketRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		resp := s.handleWSRequest(&req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

// handleWSRequest dispatches one client request.
func (s *Server) handleWSRequest(req *protocol.WebSocketRequest) *protocol.WebSocketResponse {
	switch req.Type {
	case protocol.WSTypeWrite:
		url, _ := req.Payload["url"].(string)
		payload, _ := s.doWrite(url)
		return &protocol.WebSocketResponse{
			ID:      req.ID,
			Type:    protocol.WSTypeWriteResponse,
			Success: payload.Success,
			Payload: payload,
			Error:   payload.Error,
		}
	default:
		return &protocol.WebSocketResponse{
			ID:    req.ID,
			Type:  protocol.WSTypeError,
			Error: "unknown request type: " + req.Type,
		}
	}
}

// broadcastWriteEvent notifies all connected clients of a completed write.
func (s *Server) broadcastWriteEvent(url string) {
	message := &protocol.WebSocketMessage{
		ID:      uuid.NewString(),
		Type:    protocol.WSTypeWriteEvent,
		Payload: protocol.WriteResponse{Success: true, URL: url},
	}

	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	for client := range s.clients {
		if err := client.WriteJSON(message); err != nil {
			log.Warn().Err(err).Msg("WebSocket broadcast error")
			client.Close()
			delete(s.clients, client)
		}
	}
}

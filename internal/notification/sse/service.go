// Package sse provides Server-Sent Events support for the live appointment feed.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"estate_portal_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventAppointmentCreated   EventType = "appointment_created"
	EventAppointmentAssigned  EventType = "appointment_assigned"
	EventAppointmentScheduled EventType = "appointment_scheduled"
	EventAppointmentCompleted EventType = "appointment_completed"
	EventAppointmentCancelled EventType = "appointment_cancelled"
)

// Event represents an SSE event payload
type Event struct {
	Type          EventType   `json:"type"`
	AppointmentID int64       `json:"appointmentId"`
	PropertyID    int64       `json:"propertyId"`
	Message       string      `json:"message,omitempty"`
	Data          interface{} `json:"data,omitempty"`
}

// Viewer identifies the staff member behind a connection.
type Viewer struct {
	UserID int64
	Admin  bool
}

// client represents a connected SSE client
type client struct {
	viewer Viewer
	events chan Event
	closed bool
}

// Service manages SSE connections and event broadcasting
type Service struct {
	mu      sync.RWMutex
	clients map[int64][]*client // userID -> clients
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[int64][]*client),
		log:     log,
	}
}

// addClient registers a new client connection
func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.viewer.UserID] = append(s.clients[c.viewer.UserID], c)
}

// removeClient unregisters a client connection
func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.viewer.UserID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.viewer.UserID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.viewer.UserID]) == 0 {
		delete(s.clients, c.viewer.UserID)
	}

	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Attach registers ch as a consumer for viewer and returns the function that
// unregisters and closes it.
func (s *Service) Attach(viewer Viewer, ch chan Event) func() {
	cl := &client{viewer: viewer, events: ch}
	s.addClient(cl)
	return func() { s.removeClient(cl) }
}

// Publish sends an event to a specific user
func (s *Service) Publish(userID int64, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients[userID] {
		s.deliver(c, event)
	}
}

// PublishToStaff sends an event to every connected admin and, when agentID is
// set, to that agent.
func (s *Service) PublishToStaff(agentID int64, event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	delivered := 0
	for userID, clients := range s.clients {
		for _, c := range clients {
			if c.viewer.Admin || (agentID > 0 && userID == agentID) {
				s.deliver(c, event)
				delivered++
			}
		}
	}
	s.log.Debug("sse event published", "type", event.Type, "appointment_id", event.AppointmentID, "clients", delivered)
}

// deliver must be called with s.mu held.
func (s *Service) deliver(c *client, event Event) {
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	default:
		s.log.Warn("sse buffer full, dropping event", "user_id", c.viewer.UserID, "type", event.Type)
	}
}

// ClientCount returns the number of open connections.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, clients := range s.clients {
		n += len(clients)
	}
	return n
}

// Handler returns a Gin handler for SSE connections
func (s *Service) Handler(getViewer func(*gin.Context) (Viewer, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := getViewer(c)
		if !ok {
			if !c.IsAborted() {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			}
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		events := make(chan Event, 32)
		detach := s.Attach(viewer, events)
		defer detach()

		c.SSEvent("connected", gin.H{"userId": viewer.UserID})
		c.Writer.Flush()

		s.log.WithContext(c.Request.Context()).Info("sse client connected", "user_id", viewer.UserID, "admin", viewer.Admin)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, clients := range s.clients {
		for _, c := range clients {
			if !c.closed {
				c.closed = true
				close(c.events)
			}
		}
	}
	s.clients = make(map[int64][]*client)
}

package feed

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"weekly-options-lab/internal/observability"
	"weekly-options-lab/internal/storage"
)

// Server streams stored bars to WebSocket subscribers. Each subscriber
// names a symbol and optional unix-second range; the server replays the
// stored bars in timestamp order and closes the stream.
type Server struct {
	bars     storage.BarStore
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a bar feed server over a bar store.
func NewServer(bars storage.BarStore, logger zerolog.Logger) *Server {
	return &Server{
		bars:   bars,
		logger: logger.With().Str("component", "feed_server").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// serverSubscribe is the inbound subscription frame. From/To are unix
// seconds; zero From replays from the epoch, zero To means "now".
type serverSubscribe struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	From   int64  `json:"from,omitempty"`
	To     int64  `json:"to,omitempty"`
}

// Routes returns the HTTP mux: /ws for the bar stream, /metrics for
// Prometheus.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	var sub serverSubscribe
	if err := conn.ReadJSON(&sub); err != nil {
		s.logger.Warn().Err(err).Msg("bad subscribe frame")
		return
	}
	if sub.Symbol == "" {
		s.logger.Warn().Msg("subscribe frame without symbol")
		return
	}

	from := time.Unix(sub.From, 0)
	to := time.Now()
	if sub.To > 0 {
		to = time.Unix(sub.To, 0)
	}

	bars, err := s.bars.GetByTimeRange(r.Context(), sub.Symbol, from, to)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", sub.Symbol).Msg("load bars failed")
		return
	}

	for _, b := range bars {
		frame := BarFrame{
			Symbol:    sub.Symbol,
			Timestamp: b.Timestamp.Unix(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Debug().Err(err).Msg("subscriber write failed")
			return
		}
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete"))
	s.logger.Info().Str("symbol", sub.Symbol).Int("bars", len(bars)).Msg("stream served")
}

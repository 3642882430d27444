package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

// Константы для WebSocket-соединения
const (
	// Время ожидания записи сообщения клиенту
	writeWait = 10 * time.Second

	// Время ожидания сообщения от клиента
	pongWait = 60 * time.Second

	// Период отправки пинг-сообщений
	pingPeriod = (pongWait * 9) / 10

	// Клиент только читает события, входящие сообщения маленькие
	maxMessageSize = 4 * 1024

	// Размер очереди событий на одного клиента
	clientBuffer = 64
)

// Publisher принимает события хода выполнения ETL
type Publisher interface {
	Publish(event models.ProgressEvent)
}

// Client - подписчик на события хода выполнения
type Client struct {
	hub    *Hub
	socket *websocket.Conn
	send   chan []byte
}

// Hub рассылает события хода выполнения всем подключенным клиентам
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	logger     *utils.ETLLogger
	upgrader   websocket.Upgrader
}

// NewHub создает новый экземпляр Hub
func NewHub(logger *utils.ETLLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run обслуживает подключения до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.remove(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Add(1)
			h.logger.Debug("Подписчик подключился: %s", client.socket.RemoteAddr())

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Debug("Подписчик отключился: %s", client.socket.RemoteAddr())
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Add(-1)
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Publish ставит событие в очередь рассылки; при переполнении очереди событие отбрасывается
func (h *Hub) Publish(event models.ProgressEvent) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Ошибка сериализации события: %v", err)
		return
	}

	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.logger.Warn("Очередь событий переполнена, событие %s/%s отброшено", event.Stage, event.Status)
	}
}

// ServeWS переводит HTTP-соединение в WebSocket и подписывает клиента
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	client := &Client{hub: h, socket: socket, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		socket.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump читает управляющие кадры, чтобы обрабатывать pong и закрытие
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("Ошибка чтения WebSocket: %v", err)
			}
			return
		}
	}
}

// writePump отправляет события клиенту и поддерживает соединение пингами
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт хабом
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

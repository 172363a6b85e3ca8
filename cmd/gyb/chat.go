package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/domain"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/session"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/transport/ws"
)

func chatCmd() *cobra.Command {
	var (
		addr  string
		owner string
		agent string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with an agent through a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return chat(addr, owner, agent)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "server base URL")
	cmd.Flags().StringVar(&owner, "owner", "", "user id to log in as")
	cmd.Flags().StringVar(&agent, "agent", "", "agent to talk to in new conversations")
	cmd.MarkFlagRequired("owner")
	return cmd
}

// chatClient is a WebSocket client of one session.
type chatClient struct {
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	active string
	seen   map[string]bool
	nextID int
}

// login starts the owner's session and attaches to its view stream.
func login(baseURL, owner string) (*chatClient, error) {
	resp, err := http.Post(baseURL+"/v1/sessions/"+url.PathEscape(owner), "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/v1/sessions/" + url.PathEscape(owner) + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &chatClient{
		conn: conn,
		done: make(chan struct{}),
		seen: make(map[string]bool),
	}, nil
}

// Close closes the client connection.
func (c *chatClient) Close() error {
	return c.conn.Close()
}

func (c *chatClient) send(msg ws.ClientMessage) error {
	c.mu.Lock()
	c.nextID++
	msg.RequestID = fmt.Sprintf("req_%d", c.nextID)
	c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *chatClient) activeID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// waitActiveChange waits until a view moves the active conversation away
// from before.
func (c *chatClient) waitActiveChange(before string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if id := c.activeID(); id != "" && id != before {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// readFrames prints replies and failures until the server goes away.
func (c *chatClient) readFrames() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("read error")
			}
			return
		}

		var base ws.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			log.Warn().Err(err).Msg("unmarshal error")
			continue
		}

		switch base.Type {
		case ws.TypeView:
			var msg ws.ViewMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				c.showView(msg.View)
			}
		case ws.TypeAck:
			var msg ws.AckMessage
			if err := json.Unmarshal(data, &msg); err == nil && !msg.OK && msg.Error != "" {
				fmt.Printf("\n! %s\n> ", msg.Error)
			}
		case ws.TypeError:
			var msg ws.ErrorMessage
			if err := json.Unmarshal(data, &msg); err == nil {
				fmt.Printf("\n! %s: %s\n> ", msg.Code, msg.Message)
			}
		case ws.TypeSessionEnded:
			fmt.Println("\nsession ended")
			return
		}
	}
}

// showView prints the assistant messages of the active conversation that
// were not printed yet.
func (c *chatClient) showView(v session.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = v.ActiveConversationID
	conv, ok := v.Conversation(c.active)
	if !ok {
		return
	}
	for _, m := range conv.Messages {
		if c.seen[m.ID] {
			continue
		}
		c.seen[m.ID] = true
		if m.Role() == domain.RoleAssistant {
			fmt.Printf("\n[%s] %s\n> ", m.AgentLabel(), m.Content)
		}
	}
}

func chat(baseURL, owner, agent string) error {
	client, err := login(baseURL, owner)
	if err != nil {
		return err
	}
	defer client.Close()

	go client.readFrames()

	fmt.Printf("Logged in as %s.\n", owner)
	fmt.Println("Type a message and press Enter to send.")
	fmt.Println("Commands: /new, /rename <title>, /agent <name>, /delete, /quit")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	newConversation := func() error {
		before := client.activeID()
		if err := client.send(ws.ClientMessage{Type: ws.TypeCreate}); err != nil {
			return err
		}
		if !client.waitActiveChange(before, 5*time.Second) {
			return fmt.Errorf("conversation was not created")
		}
		if agent == "" {
			return nil
		}
		return client.send(ws.ClientMessage{Type: ws.TypeSelectAgent, ConversationID: client.activeID(), Agent: agent})
	}

	for {
		fmt.Print("> ")
		select {
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return nil
		case <-client.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}

			var err error
			switch {
			case input == "/quit":
				fmt.Println("Bye!")
				return nil
			case input == "/new":
				err = newConversation()
			case strings.HasPrefix(input, "/rename "):
				err = client.send(ws.ClientMessage{Type: ws.TypeRename, Title: strings.TrimPrefix(input, "/rename ")})
			case strings.HasPrefix(input, "/agent "):
				err = client.send(ws.ClientMessage{
					Type:           ws.TypeSelectAgent,
					ConversationID: client.activeID(),
					Agent:          strings.TrimPrefix(input, "/agent "),
				})
			case input == "/delete":
				err = client.send(ws.ClientMessage{Type: ws.TypeDelete, ConversationID: client.activeID()})
			default:
				if client.activeID() == "" {
					if err = newConversation(); err != nil {
						break
					}
				}
				err = client.send(ws.ClientMessage{Type: ws.TypeSend, ConversationID: client.activeID(), Content: input})
			}
			if err != nil {
				log.Error().Err(err).Msg("send error")
			}
		}
	}
}

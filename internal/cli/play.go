package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	var (
		name       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "play <match>",
		Short: "Join a match and stream its events",
		Long: `Connect to the server over WebSocket, join a match and stream every
frame the server sends.

Commands can be typed on stdin while connected:
  throw          Relay BALL_THROWN to the other player
  lost           Relay BALL_LOST to the other player
  cross <json>   Relay BALL_CROSSED with the given payload
  name <name>    Change display name
  matches        List open matches
  leave          Leave the match
  end            End the match for both players
  quit           Disconnect

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			format := cfg.Output
			if jsonOutput {
				format = "json"
			}
			out := NewOutput(format, cmd.OutOrStdout())

			return play(ctx, client, PlayOptions{Match: args[0], Name: name}, cmd.InOrStdin(), out)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name to set before joining")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// PlayOptions controls a play session
type PlayOptions struct {
	Match string
	Name  string
}

// outbound is a frame sent to the server
type outbound struct {
	Type    string `json:"type"`
	ID      *int64 `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Session is a realtime connection to the server
type Session struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	nextID    atomic.Int64
	closeOnce sync.Once
}

// Dial opens a realtime connection
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Send issues a request and returns the id its reply will carry
func (s *Session) Send(event string, payload any) (int64, error) {
	id := s.nextID.Add(1)
	return id, s.write(outbound{Type: event, ID: &id, Payload: payload})
}

// Relay forwards a gameplay event. Relay events have no reply.
func (s *Session) Relay(event string, payload json.RawMessage) error {
	msg := outbound{Type: event}
	if len(payload) > 0 {
		msg.Payload = payload
	}
	return s.write(msg)
}

func (s *Session) write(msg outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Next blocks until the server sends a frame
func (s *Session) Next() (Event, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return Event{}, err
	}
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("malformed frame: %w", err)
	}
	evt.Time = time.Now()
	return evt, nil
}

// Close says goodbye and drops the connection
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func play(ctx context.Context, c *Client, opts PlayOptions, in io.Reader, out *Output) error {
	url, err := c.WebSocketURL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	// Unblock Next on cancellation
	go func() {
		<-ctx.Done()
		_ = sess.Close()
	}()

	if out.format != "json" {
		out.PrintMessage("Connected to " + url)
	}

	if opts.Name != "" {
		if _, err := sess.Send("SET_NAME", opts.Name); err != nil {
			return err
		}
	}
	joinID, err := sess.Send("JOIN_MATCH", opts.Match)
	if err != nil {
		return err
	}

	if in != nil {
		go readCommands(sess, in, out, cancel)
	}

	for {
		evt, err := sess.Next()
		if err != nil {
			if ctx.Err() != nil {
				if out.format != "json" {
					out.PrintMessage("Disconnected")
				}
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("stream error: %w", err)
		}

		out.Print(evt)

		if evt.Type == "ERROR" && evt.ID != nil && *evt.ID == joinID {
			return fmt.Errorf("join %s: %s", opts.Match, evt.Error.String())
		}
	}
}

// readCommands turns stdin lines into frames until quit. End of input
// stops reading but leaves the stream running.
func readCommands(sess *Session, in io.Reader, out *Output, quit context.CancelFunc) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch strings.ToLower(verb) {
		case "throw":
			err = sess.Relay("BALL_THROWN", nil)
		case "lost":
			err = sess.Relay("BALL_LOST", nil)
		case "cross":
			if arg != "" && !json.Valid([]byte(arg)) {
				out.PrintError(fmt.Errorf("invalid JSON payload: %s", arg))
				continue
			}
			err = sess.Relay("BALL_CROSSED", json.RawMessage(arg))
		case "name":
			_, err = sess.Send("SET_NAME", arg)
		case "matches":
			_, err = sess.Send("GET_MATCHES", nil)
		case "leave":
			_, err = sess.Send("LEAVE_MATCH", nil)
		case "end":
			_, err = sess.Send("END_MATCH", nil)
		case "quit", "exit":
			quit()
			return
		default:
			out.PrintError(fmt.Errorf("unknown command %q", verb))
			continue
		}
		if err != nil {
			out.PrintError(err)
			return
		}
	}
}

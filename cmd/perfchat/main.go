package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zulfachrienst/chatbot-rag/internal/protocol"
)

type options struct {
	baseURL        string
	userID         string
	turns          int
	startDelay     time.Duration
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type wsEnvelope struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Response  string `json:"response,omitempty"`
}

var defaultMessages = []string{
	"Ada hp dengan baterai besar?",
	"Rekomendasi hp 5G di bawah 4 juta?",
	"Yes, show me all of them",
	"Berapa harga OPPO A5 Pro setelah diskon?",
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "perfchat: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var cfg options
	var textsRaw string
	var startDelayMS int
	var interTurnMS int
	var turnTimeoutMS int

	fs := flag.NewFlagSet("perfchat", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:3000", "chatbot-rag base URL")
	fs.StringVar(&cfg.userID, "user-id", "perf-replay", "user id for the replayed conversation")
	fs.IntVar(&cfg.turns, "turns", 10, "number of messages to replay")
	fs.IntVar(&startDelayMS, "start-delay-ms", 200, "delay before the first message in milliseconds")
	fs.IntVar(&interTurnMS, "inter-turn-ms", 180, "delay between messages in milliseconds")
	fs.IntVar(&turnTimeoutMS, "turn-timeout-ms", 60000, "timeout waiting for each chat_reply in milliseconds")
	fs.StringVar(&textsRaw, "texts", "", "messages separated by '|' (optional)")
	fs.BoolVar(&cfg.verbose, "verbose", true, "print replay progress")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	if cfg.baseURL == "" {
		return options{}, fmt.Errorf("base-url is required")
	}
	if cfg.turns <= 0 {
		return options{}, fmt.Errorf("turns must be > 0")
	}
	if startDelayMS < 0 {
		startDelayMS = 0
	}
	if interTurnMS < 0 {
		interTurnMS = 0
	}
	if turnTimeoutMS < 1000 {
		turnTimeoutMS = 1000
	}
	cfg.startDelay = time.Duration(startDelayMS) * time.Millisecond
	cfg.interTurnDelay = time.Duration(interTurnMS) * time.Millisecond
	cfg.turnTimeout = time.Duration(turnTimeoutMS) * time.Millisecond

	if strings.TrimSpace(textsRaw) == "" {
		cfg.texts = append([]string(nil), defaultMessages...)
	} else {
		for _, part := range strings.Split(textsRaw, "|") {
			if t := strings.TrimSpace(part); t != "" {
				cfg.texts = append(cfg.texts, t)
			}
		}
		if len(cfg.texts) == 0 {
			return options{}, fmt.Errorf("texts produced no non-empty messages")
		}
	}
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Minute)
	defer cancel()

	wsURL, err := chatWSURL(cfg.baseURL)
	if err != nil {
		return fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	if cfg.verbose {
		fmt.Printf("perfchat: user=%s turns=%d url=%s\n", cfg.userID, cfg.turns, wsURL)
	}
	if cfg.startDelay > 0 {
		time.Sleep(cfg.startDelay)
	}

	replies := make(chan wsEnvelope, 32)
	readErrCh := make(chan error, 1)
	go readLoop(conn, replies, readErrCh, cfg.verbose)

	latencies := make([]time.Duration, 0, cfg.turns)
	for i := 0; i < cfg.turns; i++ {
		text := cfg.texts[i%len(cfg.texts)]
		requestID := uuid.NewString()
		started := time.Now()
		if err := conn.WriteJSON(protocol.ChatMessage{
			Type:      protocol.TypeChatMessage,
			RequestID: requestID,
			UserID:    cfg.userID,
			Message:   text,
		}); err != nil {
			return fmt.Errorf("turn %d send: %w", i+1, err)
		}
		reply, err := awaitReply(replies, readErrCh, requestID, cfg.turnTimeout)
		if err != nil {
			return fmt.Errorf("turn %d await chat_reply: %w", i+1, err)
		}
		elapsed := time.Since(started)
		latencies = append(latencies, elapsed)
		if cfg.verbose {
			fmt.Printf("perfchat: turn %d/%d %s text=%q reply=%q\n", i+1, cfg.turns, elapsed.Round(time.Millisecond), text, clip(reply.Response, 60))
		}
		if cfg.interTurnDelay > 0 && i < cfg.turns-1 {
			time.Sleep(cfg.interTurnDelay)
		}
	}

	s := summarize(latencies)
	fmt.Printf("perfchat: turns=%d p50=%s p95=%s max=%s\n", s.count, s.p50, s.p95, s.max)

	if err := printServerStages(ctx, cfg.baseURL); err != nil && cfg.verbose {
		fmt.Fprintf(os.Stderr, "perfchat: server stage snapshot unavailable: %v\n", err)
	}
	return nil
}

func chatWSURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported base-url scheme %q", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", fmt.Errorf("base-url host is required")
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/ws"
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, replies chan<- wsEnvelope, readErrCh chan<- error, verbose bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}

		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		switch env.Type {
		case string(protocol.TypeChatReply):
			replies <- env
		case string(protocol.TypeErrorEvent):
			if verbose {
				fmt.Fprintf(os.Stderr, "perfchat: error_event code=%s detail=%s\n", env.Code, env.Detail)
			}
			if env.RequestID != "" {
				replies <- env
			}
		}
	}
}

func awaitReply(replies <-chan wsEnvelope, readErrCh <-chan error, requestID string, timeout time.Duration) (wsEnvelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case env := <-replies:
			if env.RequestID != requestID {
				continue
			}
			if env.Type == string(protocol.TypeErrorEvent) {
				return env, fmt.Errorf("server error %s: %s", env.Code, env.Detail)
			}
			return env, nil
		case err := <-readErrCh:
			return wsEnvelope{}, err
		case <-timer.C:
			return wsEnvelope{}, fmt.Errorf("timeout after %s", timeout)
		}
	}
}

type latencySummary struct {
	count int
	p50   time.Duration
	p95   time.Duration
	max   time.Duration
}

func summarize(samples []time.Duration) latencySummary {
	if len(samples) == 0 {
		return latencySummary{}
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	at := func(q float64) time.Duration {
		idx := int(q*float64(len(sorted))+0.5) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}
	return latencySummary{
		count: len(sorted),
		p50:   at(0.50),
		p95:   at(0.95),
		max:   sorted[len(sorted)-1],
	}
}

func printServerStages(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/perf/latency", nil)
	if err != nil {
		return err
	}
	res, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	var snapshot struct {
		Stages []struct {
			Stage string  `json:"stage"`
			P50MS float64 `json:"p50_ms"`
			P95MS float64 `json:"p95_ms"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return err
	}
	for _, st := range snapshot.Stages {
		fmt.Printf("perfchat: server stage=%-9s p50=%.1fms p95=%.1fms\n", st.Stage, st.P50MS, st.P95MS)
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

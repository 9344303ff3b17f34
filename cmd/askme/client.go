package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nmoreau/askme/internal/chat"
	"github.com/nmoreau/askme/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the running server a question and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		lang, _ := cmd.Flags().GetString("lang")
		name, _ := cmd.Flags().GetString("name")
		serverURL, _ := cmd.Flags().GetString("server")

		if serverURL == "" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			serverURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
		}

		return askOnce(cmd.Context(), serverURL, question, lang, name)
	},
}

func init() {
	askCmd.Flags().String("lang", "", "reply language (en or fr)")
	askCmd.Flags().String("name", "", "introduce yourself to the assistant")
	askCmd.Flags().String("server", "", "server base URL (default from config)")
}

func askOnce(ctx context.Context, serverURL, question, lang, name string) error {
	payload := map[string]any{
		"messages": []chat.Message{{Role: chat.RoleUser, Content: question}},
	}
	if lang != "" {
		payload["language"] = lang
	}
	if name != "" {
		payload["userName"] = name
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/chat", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: replies stream token by token.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable, is askme running? (%w)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var serverErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &serverErr) == nil && serverErr.Error != "" {
			return fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, serverErr.Code, serverErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return printEvents(resp.Body)
}

func printEvents(body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var ev chat.StreamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}

		switch ev.Type {
		case chat.EventContent:
			fmt.Print(ev.Data)
		case chat.EventDone:
			fmt.Println()
			return nil
		case chat.EventError:
			fmt.Println()
			printError("%s: %s", ev.Code, ev.Error)
			return fmt.Errorf("stream error: %s", ev.Code)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stream: %w", err)
	}

	fmt.Println()
	printWarning("stream ended without a terminal event")
	return nil
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/ctxchat/internal/config"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a chat message and stream the response",
	Long: `Send a chat message and stream the response.

Inline references are resolved into prompt context before generation:
  ctxchat chat 'summarize @notes/today.md'
  ctxchat chat '@"my docs/report.txt" what are the action items?'
  ctxchat chat 'compare this with @https://example.com/spec.html'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message := strings.Join(args, " ")
		model, _ := cmd.Flags().GetString("model")
		contextRefs, _ := cmd.Flags().GetStringArray("context")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{"message": message}
		if model != "" {
			body["model"] = model
		}
		if len(contextRefs) > 0 {
			body["active_context"] = contextRefs
		}

		resp, err := client.post(cmd.Context(), "/chat", body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			var payload struct {
				Error string `json:"error"`
			}
			if json.NewDecoder(resp.Body).Decode(&payload) == nil && payload.Error != "" {
				return fmt.Errorf("%s", payload.Error)
			}
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var event struct {
				ContextError string `json:"context_error"`
				Text         string `json:"text"`
				Error        string `json:"error"`
				EndStream    bool   `json:"end_stream"`
			}
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
				continue
			}

			switch {
			case event.ContextError != "":
				printWarning("%s", event.ContextError)
			case event.Error != "":
				fmt.Println()
				return fmt.Errorf("%s", event.Error)
			case event.EndStream:
				fmt.Println()
				return nil
			case event.Text != "":
				fmt.Print(event.Text)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading stream: %w", err)
		}

		fmt.Println()
		return nil
	},
}

func init() {
	chatCmd.Flags().String("model", "", "model to use (default: server default)")
	chatCmd.Flags().StringArray("context", nil, "extra context reference (path or URL), repeatable")
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available generation models",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/models"
		if refresh {
			path += "?refresh=1"
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Models  []string `json:"models"`
			Default string   `json:"default"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, m := range result.Models {
			if m == result.Default {
				fmt.Printf("%s (default)\n", colorize(colorBold, m))
			} else {
				fmt.Println(m)
			}
		}
		return nil
	},
}

func init() {
	modelsCmd.Flags().Bool("refresh", false, "force a refresh of the model list")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and prune the interaction log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged interactions, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/history"
		if date != "" {
			path += "?date=" + date
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			History []struct {
				ID          string `json:"id"`
				CreatedAt   string `json:"created_at"`
				UserMessage string `json:"user_message"`
				BotResponse string `json:"bot_response"`
				Model       string `json:"model"`
			} `json:"history"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.History) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range result.History {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, shortID(ix.ID)),
				ix.CreatedAt,
				truncateRunes(ix.UserMessage, 80),
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one logged interaction in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}

		var ix struct {
			ID          string `json:"id"`
			CreatedAt   string `json:"created_at"`
			UserMessage string `json:"user_message"`
			BotResponse string `json:"bot_response"`
			Model       string `json:"model"`
			ContextInfo string `json:"context_info"`
		}
		if err := decodeJSON(resp, &ix); err != nil {
			return err
		}

		printStatus("ID", "%s", ix.ID)
		printStatus("Created", "%s", ix.CreatedAt)
		printStatus("Model", "%s", ix.Model)
		if ix.ContextInfo != "" {
			printStatus("Context", "%s", ix.ContextInfo)
		}
		fmt.Printf("\n%s\n%s\n\n%s\n%s\n",
			colorize(colorBold, "You:"), ix.UserMessage,
			colorize(colorBold, "Bot:"), ix.BotResponse,
		)
		return nil
	},
}

var historyDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List dates that have logged interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/history/dates")
		if err != nil {
			return err
		}

		var result struct {
			Dates []string `json:"dates"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Dates) == 0 {
			fmt.Println("No history recorded.")
			return nil
		}
		for _, d := range result.Dates {
			fmt.Println(d)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete all interactions for a date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}

		var result struct {
			Message      string `json:"message"`
			DeletedCount int64  `json:"deleted_count"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		return nil
	},
}

func init() {
	historyListCmd.Flags().String("date", "", "only show interactions for this date (YYYY-MM-DD)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDatesCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

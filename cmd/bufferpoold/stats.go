package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Query a running bufferpoold instance's /stats endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}

			resp, err := client.Get(addr + "/stats")
			if err != nil {
				return fmt.Errorf("querying %s: %w", addr, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("querying %s: unexpected status %s", addr, resp.Status)
			}

			var out map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("decoding response: %w", err)
			}

			pretty, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(pretty))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "http://127.0.0.1:8089", "base URL of a running bufferpoold instance")
	return cmd
}

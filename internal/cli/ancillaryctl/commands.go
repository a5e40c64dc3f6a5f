package ancillaryctl

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ancillary-hub/ancillary/internal/advisor"
	"github.com/ancillary-hub/ancillary/internal/dashboard"
	"github.com/ancillary-hub/ancillary/internal/history"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

type statusResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type askResponse struct {
	Question         string         `json:"question"`
	Intent           prompt.Intent  `json:"intent"`
	SQL              string         `json:"sql"`
	UsesMarketData   bool           `json:"uses_market_data"`
	UsesMLPrediction bool           `json:"uses_ml_prediction"`
	Table            *tabular.Table `json:"table"`
	Summary          string         `json:"summary"`
	Error            string         `json:"error"`
	FailedStage      string         `json:"failed_stage"`
}

type insightResponse struct {
	Pair    dashboard.WeakestPair `json:"pair"`
	Insight string                `json:"insight"`
}

type classifyResponse struct {
	Stage       string `json:"stage"`
	Explanation string `json:"explanation"`
}

type historyResponse struct {
	Interactions []history.Entry `json:"interactions"`
}

func newHealthCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.status(cmd, "/v1/health")
		},
	}
}

func newReadyCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check that the API dependencies are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.status(cmd, "/v1/ready")
		},
	}
}

func (c *client) status(cmd *cobra.Command, path string) error {
	var resp statusResponse
	raw, err := c.getJSON(cmd.Context(), path, &resp)
	if err != nil {
		return err
	}
	if c.jsonMode {
		printJSON(cmd.OutOrStdout(), raw)
		return nil
	}
	if resp.Service != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resp.Status, resp.Service)
		return nil
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), resp.Status)
	return nil
}

func newAskCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>",
		Short:   "Answer a natural-language question about ancillary performance",
		Example: `  ancillaryctl ask "Which city had the best spa ROI last month?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is required")
			}
			var resp askResponse
			raw, err := c.postJSON(cmd.Context(), "/v1/ask", map[string]string{"question": question}, &resp)
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
			} else {
				renderAsk(cmd.OutOrStdout(), resp)
			}
			if resp.Error != "" {
				return &requestError{err: errors.New(resp.Error)}
			}
			return nil
		},
	}
}

func newDashboardCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show portfolio KPIs, rankings and lifecycle stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var d dashboard.Dashboard
			raw, err := c.getJSON(cmd.Context(), "/v1/dashboard", &d)
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
				return nil
			}
			renderDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newInsightCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "insight",
		Short: "Explain the weakest service and city pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp insightResponse
			raw, err := c.postJSON(cmd.Context(), "/v1/dashboard/insight", nil, &resp)
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
				return nil
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s in %s (avg ROI %s, %s)\n\n", resp.Pair.Service, resp.Pair.City, percent(&resp.Pair.AvgROI), resp.Pair.Direction)
			_, _ = fmt.Fprintln(out, resp.Insight)
			return nil
		},
	}
}

func newClassifyCommand(c *client) *cobra.Command {
	return &cobra.Command{
		Use:     "classify <roi> [roi...]",
		Short:   "Classify the lifecycle stage of an ROI series",
		Example: "  ancillaryctl classify 4.1 5.3 6.8",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]float64, 0, len(args))
			for _, arg := range args {
				value, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid ROI value %q", arg)
				}
				values = append(values, value)
			}
			var resp classifyResponse
			raw, err := c.postJSON(cmd.Context(), "/v1/lifecycle/classify", map[string]any{"values": values}, &resp)
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Stage, resp.Explanation)
			return nil
		},
	}
}

func newAdviseCommand(c *client) *cobra.Command {
	var mode, csvPath string
	cmd := &cobra.Command{
		Use:   "advise [question]",
		Short: "Ask the revenue advisor or the ROI analyzer",
		Example: `  ancillaryctl advise "Should we open a rooftop bar in Berlin?"
  ancillaryctl advise --mode roi --csv sales.csv "Is the gym worth expanding?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			var resp advisor.Response
			var raw []byte
			var err error
			if csvPath == "" {
				raw, err = c.postJSON(cmd.Context(), "/v1/advisor", map[string]string{"mode": mode, "question": question}, &resp)
			} else {
				raw, err = c.postAdvisorUpload(cmd, mode, question, csvPath, &resp)
			}
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(advisor.ModeAdvisor), "advisor or roi")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file whose first rows are shared with the model")
	return cmd
}

func (c *client) postAdvisorUpload(cmd *cobra.Command, mode, question, csvPath string, out *advisor.Response) ([]byte, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("mode", mode)
	_ = form.WriteField("question", question)
	part, err := form.CreateFormFile("file", filepath.Base(csvPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	raw, err := c.do(cmd.Context(), http.MethodPost, "/v1/advisor", form.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	return raw, decode(raw, out)
}

func newHistoryCommand(c *client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "List recent interactions, or show one by id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				var entry history.Entry
				raw, err := c.getJSON(cmd.Context(), "/v1/history/"+url.PathEscape(args[0]), &entry)
				if err != nil {
					return err
				}
				if c.jsonMode {
					printJSON(cmd.OutOrStdout(), raw)
					return nil
				}
				renderHistoryEntry(cmd.OutOrStdout(), entry)
				return nil
			}

			path := "/v1/history"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var resp historyResponse
			raw, err := c.getJSON(cmd.Context(), path, &resp)
			if err != nil {
				return err
			}
			if c.jsonMode {
				printJSON(cmd.OutOrStdout(), raw)
				return nil
			}
			renderHistory(cmd.OutOrStdout(), resp.Interactions)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of interactions to list")
	return cmd
}

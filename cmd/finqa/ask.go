package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"balance-sheet-rag/internal/models"

	"github.com/spf13/cobra"
)

const defaultRole = "Management"

var (
	askDocumentID  int64
	askCompany     string
	askQuestion    string
	askInteractive bool
	askRole        string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a question about an ingested report",
	Long: `Answers a question about one ingested report, or in legacy mode about a
company's stored metrics. Questions asking to show, plot or chart figures also
print the chart data.`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int64Var(&askDocumentID, "doc", 0, "document id to ask about")
	askCmd.Flags().StringVar(&askCompany, "company", "", "company code to ask about (legacy metrics)")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (non-interactive mode)")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "run in interactive mode")
	askCmd.Flags().StringVar(&askRole, "role", defaultRole, "role of the person asking: CEO, Analyst or Management")
	rootCmd.AddCommand(askCmd)
}

// querier answers one question.
type querier interface {
	Query(ctx context.Context, req models.QueryRequest) models.Response
}

func runAsk(cmd *cobra.Command, args []string) error {
	if !askInteractive && strings.TrimSpace(askQuestion) == "" {
		return errors.New("question is required in non-interactive mode, use -q 'your question'")
	}
	if askDocumentID > 0 && askCompany != "" {
		return errors.New("use either --doc or --company, not both")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scope := models.Scope{DocumentID: askDocumentID}
	if askCompany != "" {
		id, err := a.db.CompanyByCode(ctx, askCompany)
		if err != nil {
			return err
		}
		scope = models.Scope{CompanyID: id}
	}

	service := a.chatService()

	if askInteractive {
		return runInteractiveMode(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), service, scope, askRole)
	}

	if !scope.Valid() {
		return errors.New("--doc or --company is required")
	}
	resp := service.Query(ctx, models.QueryRequest{Scope: scope, Role: askRole, Question: askQuestion})
	fmt.Fprintln(cmd.OutOrStdout(), formatAnswer(resp))
	return nil
}

func runInteractiveMode(ctx context.Context, in io.Reader, out io.Writer, service querier, scope models.Scope, role string) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Financial report assistant - ask about the report (type 'exit' to quit)")
	fmt.Fprintln(out, "Commands: /doc N, /role NAME")
	if scope.Valid() {
		fmt.Fprintf(out, "Scope: %s\n", describeScope(scope))
	}

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			break
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(lower, "/doc ") {
			id, err := strconv.ParseInt(strings.TrimSpace(input[len("/doc "):]), 10, 64)
			if err != nil || id <= 0 {
				fmt.Fprintln(out, "Usage: /doc N")
				continue
			}
			scope = models.Scope{DocumentID: id}
			fmt.Fprintf(out, "Scope set to %s\n", describeScope(scope))
			continue
		}

		if strings.HasPrefix(lower, "/role ") {
			role = strings.TrimSpace(input[len("/role "):])
			fmt.Fprintf(out, "Role set to: %s\n", role)
			continue
		}

		if !scope.Valid() {
			fmt.Fprintln(out, "No report selected, use /doc N first")
			continue
		}

		resp := service.Query(ctx, models.QueryRequest{Scope: scope, Role: role, Question: input})
		fmt.Fprintln(out, formatAnswer(resp))
	}

	return scanner.Err()
}

func describeScope(scope models.Scope) string {
	if scope.IsDocument() {
		return fmt.Sprintf("document %d", scope.DocumentID)
	}
	return fmt.Sprintf("company %d", scope.CompanyID)
}

func formatAnswer(resp models.Response) string {
	var sb strings.Builder
	sb.WriteString(resp.Answer)

	if resp.ChartData == nil || len(resp.ChartData.Series) == 0 {
		return sb.String()
	}

	chart := resp.ChartData
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Chart (%s):\n", chart.ChartType))

	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{""}
	for _, y := range chart.Years {
		header = append(header, strconv.Itoa(y))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, s := range chart.Series {
		row := []string{s.Label}
		for _, v := range s.Values {
			row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()

	return strings.TrimRight(sb.String(), "\n")
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/application-advisor/internal/advisor"
	"github.com/jonathan/application-advisor/internal/capability"
	"github.com/jonathan/application-advisor/internal/observability"
	"github.com/jonathan/application-advisor/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive advisory conversation",
	Long:  "Run the advisor in the terminal: paste your CV and a job posting, answer its questions, and get an apply/skip recommendation.",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.close()

	sessionID := uuid.NewString()
	printer := observability.NewPrinter(os.Stdout)

	fmt.Println("Application advisor. Paste your CV and a job posting to get started.")
	fmt.Println("Commands: status, done, reset, reset profile, quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "quit" || text == "exit" {
			break
		}

		// Stream the conversational reply as it is generated.
		var streamed strings.Builder
		result, err := a.orch.SubmitTurn(cmd.Context(), sessionID, advisor.TurnInput{Text: text},
			func(chunk string) {
				streamed.WriteString(chunk)
				fmt.Print(chunk)
			})
		if err != nil {
			printTurnError(err)
			continue
		}

		// The final reply can carry more than the streamed dialogue, such as
		// an appended recommendation. Print only what was not streamed yet.
		if rest := strings.TrimPrefix(result.Reply, streamed.String()); rest != "" {
			fmt.Print(rest)
		}
		fmt.Println()

		if result.Phase == session.PhaseViewingRecommendation && a.cfg.Verbose {
			if s, err := a.orch.SessionState(cmd.Context(), sessionID); err == nil {
				if job, ok := s.ActiveJobAnalysis(); ok {
					printer.PrintAnalysis(job.Report)
					printer.PrintGapLedger(job.Ledger)
					printer.PrintRecommendation(job.Recommendation)
				}
			}
		}

		if len(result.QuickReplies) > 0 {
			fmt.Printf("[suggestions: %s]\n", strings.Join(result.QuickReplies, ", "))
		}
		fmt.Println()

		if result.Phase == session.PhaseComplete {
			break
		}
	}
	return scanner.Err()
}

// printTurnError renders orchestrator errors as guidance instead of failures:
// input and state problems are conversational, capability failures transient.
func printTurnError(err error) {
	var inputErr *advisor.InputError
	if errors.As(err, &inputErr) {
		fmt.Println(inputErr.Message)
		return
	}
	var stateErr *advisor.StateError
	if errors.As(err, &stateErr) {
		fmt.Println(stateErr.Message)
		return
	}
	var capErr *capability.Error
	if errors.As(err, &capErr) {
		fmt.Println("Sorry, that could not be processed right now. Please try again.")
		return
	}
	fmt.Printf("Error: %v\n", err)
}

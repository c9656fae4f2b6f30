package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/balazsgrill/synapse"
	"github.com/balazsgrill/synapse/controller"
	"github.com/balazsgrill/synapse/mqttsink"
)

var consoleGatewayURL string

var sampleScenarios = []string{
	"A restaurant is overloaded with a 40-minute kitchen prep time. Order ID: ORD-123, Customer: John Doe",
	"Damaged packaging dispute - spilled drink at customer's doorstep. Order ID: ORD-456, Driver: Mike Smith",
	"Recipient unavailable for valuable package delivery. Package ID: PKG-789, Location: Office Complex Downtown",
	"Major traffic obstruction blocking route to airport. Passenger has urgent flight FL-ABC123 departing in 90 minutes",
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Submit scenarios interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		gatewayURL := cfg.Gateway.URL
		if consoleGatewayURL != "" {
			gatewayURL = consoleGatewayURL
		}
		gw := controller.NewHTTPGateway(gatewayURL, nil)

		opts := []controller.Option{controller.WithLogger(log)}
		if cfg.MQTT.Enabled() {
			pub, err := mqttsink.Connect(mqttsink.Options{
				Broker:      cfg.MQTT.Broker,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Logger:      log,
			})
			if err != nil {
				// the console stays usable without observers
				log.Warnw("MQTT sink disabled", "error", err)
			} else {
				defer pub.Close()
				opts = append(opts, controller.WithSink(pub))
			}
		}

		ctrl := controller.New(gw, opts...)
		return runConsole(cmd.Context(), os.Stdin, ctrl, gw)
	},
}

func init() {
	consoleCmd.Flags().StringVar(&consoleGatewayURL, "gateway", "", "gateway base URL (overrides gateway.url)")
}

// runConsole reads one scenario or command per line until exit or EOF.
func runConsole(ctx context.Context, in io.Reader, ctrl *controller.Controller, gw *controller.HTTPGateway) error {
	pterm.DefaultSection.Println("Synapse console")
	pterm.Info.Println("Describe a delivery disruption and the agent will try to resolve it.")
	pterm.Info.Println("Type 'help' for available commands, 'exit' or 'quit' to end the session.")

	scanner := bufio.NewScanner(in)
	for {
		pterm.Print(pterm.Bold.Sprint("scenario> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			pterm.Warning.Println("Ending session. Goodbye!")
			return nil
		case "help":
			printHelp()
			continue
		case "history":
			printHistory(ctrl.History().Entries())
			continue
		case "reset":
			ctrl.Reset()
			pterm.Info.Println("History cleared.")
			continue
		case "tools":
			printTools(ctx, gw)
			continue
		}

		if n, ok := sampleIndex(line); ok {
			line = sampleScenarios[n]
			pterm.Info.Printfln("Using sample: %s", line)
		}

		pterm.Info.Println("Submitting scenario...")
		exec, err := ctrl.Submit(ctx, line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		printExecution(exec)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read input")
	}
	return nil
}

// sampleIndex recognizes "sample N" with N starting at 1.
func sampleIndex(line string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(strings.ToLower(line), "sample %d", &n); err != nil {
		return 0, false
	}
	if n < 1 || n > len(sampleScenarios) {
		return 0, false
	}
	return n - 1, true
}

func printHelp() {
	items := []pterm.BulletListItem{
		{Level: 0, Text: "help     - Show this help message"},
		{Level: 0, Text: "history  - List executions, most recent first"},
		{Level: 0, Text: "tools    - Show the upstream tool catalog"},
		{Level: 0, Text: "reset    - Clear the session history"},
		{Level: 0, Text: "sample N - Submit sample scenario N"},
		{Level: 0, Text: "exit     - Exit the console (also: quit)"},
	}
	for i, s := range sampleScenarios {
		items = append(items, pterm.BulletListItem{Level: 1, Text: fmt.Sprintf("sample %d: %s", i+1, s)})
	}
	pterm.DefaultBulletList.WithItems(items).Render()
}

func printExecution(exec synapse.AgentExecution) {
	if exec.Success {
		pterm.Success.Printfln("%s %s", exec.ID, exec.Scenario)
	} else {
		pterm.Error.Printfln("%s %s", exec.ID, exec.Scenario)
	}
	pterm.Println(exec.Reasoning)

	if len(exec.ExecutionResults) == 0 && len(exec.PlannedActions) == 0 {
		return
	}
	data := pterm.TableData{{"Tool", "Status", "Reasoning", "Result"}}
	for _, res := range exec.ExecutionResults {
		outcome := res.Error
		if res.Status != synapse.StatusError {
			outcome = compactJSON(res.Result)
		}
		data = append(data, []string{res.Tool, string(res.Status), res.Reasoning, outcome})
	}
	if len(exec.ExecutionResults) == 0 {
		for _, action := range exec.PlannedActions {
			data = append(data, []string{action.Tool, "planned", action.Reasoning, compactJSON(action.Params)})
		}
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printHistory(entries []synapse.AgentExecution) {
	if len(entries) == 0 {
		pterm.Info.Println("No executions yet.")
		return
	}
	data := pterm.TableData{{"ID", "Time", "Success", "Actions", "Scenario"}}
	for _, e := range entries {
		data = append(data, []string{
			e.ID,
			e.Timestamp.Format("15:04:05"),
			fmt.Sprint(e.Success),
			fmt.Sprint(len(e.PlannedActions)),
			e.Scenario,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printTools(ctx context.Context, gw *controller.HTTPGateway) {
	tools, err := gw.ListTools(ctx)
	if err != nil {
		pterm.Error.Printfln("Failed to fetch tools: %v", err)
		return
	}
	pterm.Println(compactJSON(tools))
}

func compactJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

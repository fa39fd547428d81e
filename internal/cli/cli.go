package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abzali8806/Cue-MVP-api/internal/config"
	"github.com/Abzali8806/Cue-MVP-api/internal/log"
	internal_storage "github.com/Abzali8806/Cue-MVP-api/internal/storage"
	"github.com/Abzali8806/Cue-MVP-api/pkg/catalog"
	"github.com/Abzali8806/Cue-MVP-api/pkg/intent"
	"github.com/Abzali8806/Cue-MVP-api/pkg/models"
	"github.com/Abzali8806/Cue-MVP-api/pkg/pipeline"
	"github.com/Abzali8806/Cue-MVP-api/pkg/validator"
)

func SetupCLI(rootCmd *cobra.Command) {
	generateCmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a workflow skeleton from a natural language prompt (CLI)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, store := initService(cmd)
			defer store.Close()
			res, err := svc.Generate(context.Background(), args[0], models.TextInputType)
			if err != nil {
				log.GetLogger().Errorf("Failed to generate workflow: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to generate workflow: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Created workflow '%s' with ID %s (state %s)\n",
				res.Workflow.Name, res.Workflow.ID, res.Workflow.State)
			for _, b := range res.Bindings {
				fmt.Fprintf(os.Stdout, "- Step %d: %s via %s (%s, confidence %.2f)\n",
					b.StepIndex, b.Action, b.ToolName, b.Method, b.Confidence)
			}
			if len(res.Skeleton.Placeholders) > 0 {
				fmt.Fprintf(os.Stdout, "Required credentials: %s\n",
					strings.Join(res.Skeleton.Placeholders, ", "))
			}
			fmt.Fprintf(os.Stdout, "\n%s\n", res.Skeleton.Source)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all workflows (CLI)",
		Run: func(cmd *cobra.Command, args []string) {
			svc, store := initService(cmd)
			defer store.Close()
			listWorkflows(svc)
		},
	}

	getCmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a workflow and its latest artifact (CLI)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, store := initService(cmd)
			defer store.Close()
			getWorkflow(svc, args[0])
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a code file outside any workflow (CLI)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stage, _ := cmd.Flags().GetString("stage")
			svc, store := initService(cmd)
			defer store.Close()
			code, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", args[0], err)
				os.Exit(1)
			}
			report, err := svc.ValidateCode(context.Background(), string(code), stage)
			if err != nil {
				log.GetLogger().Errorf("Failed to validate code: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to validate code: %v\n", err)
				os.Exit(1)
			}
			printReport(report)
		},
	}
	validateCmd.Flags().String("stage", "initial_skeleton", "Validation stage: initial_skeleton or final_with_credentials")

	rootCmd.AddCommand(generateCmd, listCmd, getCmd, validateCmd)
}

func listWorkflows(svc *pipeline.Service) {
	workflows, err := svc.ListWorkflows()
	if err != nil {
		log.GetLogger().Errorf("Failed to list workflows: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to list workflows: %v\n", err)
		os.Exit(1)
	}
	if len(workflows) == 0 {
		fmt.Fprintf(os.Stdout, "No workflows found.\n")
		return
	}
	fmt.Fprintf(os.Stdout, "Workflows:\n")
	for _, wf := range workflows {
		fmt.Fprintf(os.Stdout, "- ID: %s, Name: %s, State: %s, Retries: %d, Created: %s\n",
			wf.ID, wf.Name, wf.State, wf.RetryCount, wf.CreatedAt.Format(time.RFC3339))
	}
}

func getWorkflow(svc *pipeline.Service, id string) {
	wf, err := svc.GetWorkflow(id)
	if err != nil {
		log.GetLogger().Errorf("Failed to get workflow: %v", err)
		fmt.Fprintf(os.Stderr, "Error: failed to get workflow: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "ID: %s\nName: %s\nState: %s\n", wf.ID, wf.Name, wf.State)
	if wf.FailureReason != "" {
		fmt.Fprintf(os.Stdout, "Failure reason: %s\n", wf.FailureReason)
	}
	if art, err := svc.LatestArtifact(id); err == nil {
		fmt.Fprintf(os.Stdout, "Latest artifact: v%d (%s)\n\n%s\n", art.Version, art.Kind, art.Source)
	}
}

func printReport(report models.ValidationReport) {
	if report.Valid {
		fmt.Fprintf(os.Stdout, "PASS\n")
	} else {
		fmt.Fprintf(os.Stdout, "FAIL (%d errors)\n", report.ErrorCount())
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(os.Stdout, "- [%s] %s line %d: %s\n", d.Severity, d.Stage, d.Line, d.Message)
	}
	for _, s := range report.Suggestions {
		fmt.Fprintf(os.Stdout, "- suggestion (%s): %s\n", s.Type, s.Message)
	}
}

func initService(cmd *cobra.Command) (*pipeline.Service, *internal_storage.PostgresStore) {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	log.GetLogger().Debugf("Running with db: %s", dbConnStr)
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	pc := config.DefaultPipeline()
	svc := pipeline.NewService(
		store,
		intent.NewKeywordExtractor(),
		catalog.Default(),
		validator.New(nil, 0),
		pipeline.Config{
			RetryBudget:         pc.RetryBudget,
			ConfidenceThreshold: pc.ConfidenceThreshold,
			StageTimeout:        pc.StageTimeout,
			RegenBackoff:        pc.RegenBackoff,
		},
		log.GetLogger(),
	)
	return svc, store
}

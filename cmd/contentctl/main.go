package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/bootstrap"
	"content-forge/config"
	"content-forge/eventbus"
	"content-forge/events"
	"content-forge/models"
	"content-forge/pipeline"
)

var (
	configFile string

	title    string
	keywords string
	notes    string
	ownerID  string
	project  string

	contentID string
	excluded  string
	outline   string
	async     bool

	runID        string
	phase        string
	researchFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contentctl",
		Short: "Operate the content generation pipeline",
		Long: `contentctl creates content items, runs generation in-process or through
the event bus, resumes parked runs and prints run state.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: project config)")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a content item in the idea state",
		RunE:  runCreate,
	}
	createCmd.Flags().StringVar(&title, "title", "", "Content title")
	createCmd.Flags().StringVar(&keywords, "keywords", "", "Comma-separated keywords")
	createCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes for the writer")
	createCmd.Flags().StringVar(&ownerID, "owner", "", "Owner user id (hex)")
	createCmd.Flags().StringVar(&project, "project", "", "Project id (hex)")
	createCmd.MarkFlagRequired("title")
	createCmd.MarkFlagRequired("owner")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate content for an item",
		RunE:  runGenerate,
	}
	generateCmd.Flags().StringVar(&contentID, "content", "", "Content item id (hex)")
	generateCmd.Flags().StringVar(&excluded, "exclude", "", "Comma-separated domains to exclude from research")
	generateCmd.Flags().StringVar(&outline, "outline", "", "Comma-separated outline headings")
	generateCmd.Flags().BoolVar(&async, "async", false, "Publish a generation request instead of running in-process")
	generateCmd.MarkFlagRequired("content")

	continueCmd := &cobra.Command{
		Use:   "continue",
		Short: "Resume a parked run from a phase",
		RunE:  runContinue,
	}
	continueCmd.Flags().StringVar(&runID, "run", "", "Generation run id (hex)")
	continueCmd.Flags().StringVar(&phase, "phase", string(models.RunImage), "Phase to resume from")
	continueCmd.Flags().StringVar(&researchFile, "research-file", "", "JSON file with research data")
	continueCmd.Flags().BoolVar(&async, "async", false, "Publish a continue request instead of running in-process")
	continueCmd.MarkFlagRequired("run")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the state of a generation run",
		RunE:  runStatus,
	}
	statusCmd.Flags().StringVar(&runID, "run", "", "Generation run id (hex)")
	statusCmd.MarkFlagRequired("run")

	rootCmd.AddCommand(createCmd, generateCmd, continueCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() error {
	if configFile == "" {
		config.InitApp()
	} else {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		config.SetConfig(c)
	}
	config.InitLogger(config.GetConfig().Logging)
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	owner, err := parseID("owner", ownerID)
	if err != nil {
		return err
	}
	var projectID primitive.ObjectID
	if project != "" {
		if projectID, err = parseID("project", project); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	repos, err := bootstrap.OpenRepositories(ctx)
	if err != nil {
		return err
	}
	defer bootstrap.Shutdown()

	item := &models.ContentItem{
		OwnerID:   owner,
		ProjectID: projectID,
		Title:     strings.TrimSpace(title),
		Keywords:  splitList(keywords),
		Notes:     notes,
	}
	id, err := repos.Contents.Insert(ctx, item)
	if err != nil {
		return fmt.Errorf("insert content item: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), id.Hex())
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	id, err := parseID("content", contentID)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if async {
		return withDispatcher(ctx, func(d *events.Dispatcher) error {
			eventID, err := d.RequestGeneration(ctx, id, splitList(excluded), splitList(outline), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued event %s\n", eventID)
			return nil
		})
	}

	return withOrchestrator(ctx, func(orch *pipeline.Orchestrator) error {
		res, err := orch.Generate(ctx, pipeline.Request{
			ContentID:       id,
			ExcludedDomains: splitList(excluded),
			Outline:         splitList(outline),
		})
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	})
}

func runContinue(cmd *cobra.Command, args []string) error {
	id, err := parseID("run", runID)
	if err != nil {
		return err
	}
	var research *models.ResearchData
	if researchFile != "" {
		if research, err = loadResearchFile(researchFile); err != nil {
			return err
		}
	}
	ctx := cmd.Context()

	if async {
		return withDispatcher(ctx, func(d *events.Dispatcher) error {
			eventID, err := d.RequestContinue(ctx, id, phase, research)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued event %s\n", eventID)
			return nil
		})
	}

	return withOrchestrator(ctx, func(orch *pipeline.Orchestrator) error {
		res, err := orch.ContinueFromPhase(ctx, id, phase, research)
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID("run", runID)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repos, err := bootstrap.OpenRepositories(ctx)
	if err != nil {
		return err
	}
	defer bootstrap.Shutdown()

	run, err := repos.Runs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find run %s: %w", id.Hex(), err)
	}
	return writeRunStatus(cmd.OutOrStdout(), run)
}

func withOrchestrator(ctx context.Context, fn func(*pipeline.Orchestrator) error) error {
	repos, err := bootstrap.OpenRepositories(ctx)
	if err != nil {
		return err
	}
	defer bootstrap.Shutdown()

	orch, err := bootstrap.Orchestrator(ctx, config.GetConfig(), repos)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	return fn(orch)
}

func withDispatcher(ctx context.Context, fn func(*events.Dispatcher) error) error {
	cfg := config.GetConfig()
	brokers, err := eventbus.Brokers(cfg.Kafka)
	if err != nil {
		return err
	}
	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	defer bus.Close()
	return fn(events.NewDispatcher(bus, eventbus.TopicGenerationEvents, "contentctl"))
}

func printResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:              %s\n", res.RunID.Hex())
	fmt.Fprintf(out, "status:           %s\n", res.Status)
	if res.Suspended {
		fmt.Fprintln(out, "suspended:        waiting for research callback")
		return
	}
	fmt.Fprintf(out, "publish ready:    %t\n", res.PublishReady)
	fmt.Fprintf(out, "credits deducted: %t\n", res.CreditsDeducted)
}

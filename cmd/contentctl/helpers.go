package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"content-forge/artifacts"
	"content-forge/models"
	"content-forge/pipeline"
)

func parseID(name, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid --%s id %q", name, hex)
	}
	return id, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadResearchFile reads research data in the same JSON shape the webhook accepts.
func loadResearchFile(path string) (*models.ResearchData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read research file: %w", err)
	}
	var data models.ResearchData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse research file %s: %w", path, err)
	}
	if strings.TrimSpace(data.Data) == "" {
		return nil, errors.New("research file has no data")
	}
	return &data, nil
}

func writeRunStatus(w io.Writer, run *models.GenerationRun) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run:\t%s\n", run.ID.Hex())
	fmt.Fprintf(tw, "content:\t%s\n", run.ContentItemID.Hex())
	fmt.Fprintf(tw, "status:\t%s\n", run.Status)
	fmt.Fprintf(tw, "progress:\t%d%%\n", run.Progress)
	fmt.Fprintf(tw, "publish ready:\t%t\n", run.PublishReady)
	fmt.Fprintf(tw, "credits charged:\t%t\n", run.CreditsCharged)

	if state, err := pipeline.QualityStateFrom(run.Artifacts); err == nil {
		fmt.Fprintf(tw, "quality runs:\t%d\n", state.RunsSoFar)
	}
	var research models.ResearchArtifact
	if ok, err := artifacts.Decode(run.Artifacts, models.ArtifactResearch, &research); ok && err == nil && research.CorrelationID != "" {
		fmt.Fprintf(tw, "correlation id:\t%s\n", research.CorrelationID)
	}
	fmt.Fprintf(tw, "started:\t%s\n", run.StartedAt.Format(time.RFC3339))
	if run.CompletedAt != nil {
		fmt.Fprintf(tw, "completed:\t%s\n", run.CompletedAt.Format(time.RFC3339))
	}
	if run.Error != "" {
		fmt.Fprintf(tw, "error:\t%s\n", run.Error)
	}
	return tw.Flush()
}

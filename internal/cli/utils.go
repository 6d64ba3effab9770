// Package cli provides output formatting and input helpers for the internmatch CLI.
package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/pkg/utils"
)

// OutputFormat is the format for recommendation output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// NoRecommendations is printed when nothing clears the score threshold.
const NoRecommendations = "No recommendations available."

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteRecommendations writes recs to w in the given format.
func WriteRecommendations(w io.Writer, recs *models.Recommendations, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case OutputCompact:
		writeCompact(w, recs)
		return nil
	default:
		writeText(w, recs)
		return nil
	}
}

func writeText(w io.Writer, recs *models.Recommendations) {
	if recs.Empty {
		fmt.Fprintf(w, "\n%s\n\n", NoRecommendations)
		return
	}
	fmt.Fprintf(w, "\nFound %d recommendations in %dms (weights: lexical %.2f, semantic %.2f; min score %.2f)\n",
		recs.Total, recs.QueryTime, recs.Weights.Lexical, recs.Weights.Semantic, recs.MinScore)
	if recs.Fallback {
		fmt.Fprintln(w, "Semantic scoring timed out; ranked by keywords only.")
	}
	fmt.Fprintln(w)
	for _, r := range recs.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			r.Rank, r.HybridScore, r.LexicalScore, r.SemanticScore)
		fmt.Fprintf(w, "Title: %s\n", r.Record.Title)
		if r.Record.RequiredSkills != "" {
			fmt.Fprintf(w, "Skills: %s\n", r.Record.RequiredSkills)
		}
		if r.Record.Description != "" {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Record.Description, 200))
		}
		fmt.Fprintln(w)
	}
}

func writeCompact(w io.Writer, recs *models.Recommendations) {
	if recs.Empty {
		fmt.Fprintln(w, NoRecommendations)
		return
	}
	for _, r := range recs.Results {
		fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", r.Rank, r.HybridScore, r.Record.Title,
			utils.TruncateWords(r.Record.RequiredSkills, 8))
	}
}

// ParseWeights parses "lexical,semantic", e.g. "0.4,0.6".
func ParseWeights(s string) (models.FusionWeights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return models.FusionWeights{}, fmt.Errorf("weights must be two comma-separated numbers, got %q", s)
	}
	lw, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.FusionWeights{}, fmt.Errorf("lexical weight: %w", err)
	}
	sw, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.FusionWeights{}, fmt.Errorf("semantic weight: %w", err)
	}
	if lw < 0 || sw < 0 {
		return models.FusionWeights{}, fmt.Errorf("weights must not be negative: %q", s)
	}
	return models.FusionWeights{Lexical: lw, Semantic: sw}, nil
}

// ReadProfiles reads one JSON profile per line. Blank lines are skipped;
// a malformed line is reported with its line number.
func ReadProfiles(r io.Reader) ([]*models.QueryProfile, error) {
	var profiles []*models.QueryProfile
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		p, err := models.ParseProfile([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		profiles = append(profiles, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// BatchLine is one line of batch output.
type BatchLine struct {
	Index           int                     `json:"index"`
	Recommendations *models.Recommendations `json:"recommendations,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

// WriteBatchLine writes one JSON object per line.
func WriteBatchLine(w io.Writer, line BatchLine) error {
	return json.NewEncoder(w).Encode(line)
}

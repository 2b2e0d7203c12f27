package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/insightmill/panelcraft/internal/oracle"
	"github.com/insightmill/panelcraft/internal/store"
	"github.com/insightmill/panelcraft/internal/synth"
)

func main() {
	dbPath := flag.String("db", "./data/panelcraft.db", "path to SQLite database file")
	projectID := flag.String("project", "", "project id to generate a panel for")
	seed := flag.Int64("seed", 0, "random seed (0 = current time)")
	count := flag.Int("count", synth.DefaultPanelSize, "respondent count")
	noOracle := flag.Bool("no-oracle", false, "skip the oracle and use default distributions")
	force := flag.Bool("force", false, "replace an existing panel")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("missing required -project")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	project, ok, err := st.GetProject(*projectID)
	if err != nil {
		log.Fatalf("load project: %v", err)
	}
	if !ok {
		log.Fatalf("project %s not found", *projectID)
	}
	questions, err := st.ListQuestions(*projectID)
	if err != nil {
		log.Fatalf("load questions: %v", err)
	}
	if len(questions) == 0 {
		log.Fatalf("project %s has no questions", *projectID)
	}

	total, _, err := st.CountResponses(*projectID)
	if err != nil {
		log.Fatalf("count responses: %v", err)
	}
	if total > 0 {
		if !*force {
			log.Fatalf("project already has %d responses, re-run with -force to replace them", total)
		}
		if err := st.DeleteResponses(*projectID); err != nil {
			log.Fatalf("delete responses: %v", err)
		}
	}

	spec := oracle.PanelSpec{}
	if !*noOracle {
		caller, err := oracle.NewAnthropicCallerFromEnv()
		if err != nil {
			log.Fatalf("oracle unavailable (use -no-oracle for defaults): %v", err)
		}
		fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		spec, err = oracle.FetchPanelSpec(fetchCtx, caller, project.Title, project.Description, questions)
		cancel()
		if err != nil {
			log.Printf("oracle spec unavailable, using defaults: %v", err)
			spec = oracle.PanelSpec{}
		}
	}

	s := *seed
	if s == 0 {
		s = time.Now().UnixMilli()
	}
	panel := synth.GeneratePanel(*projectID, questions, spec, *count, s, time.Now().UTC())

	if err := st.InsertResponses(panel.Responses); err != nil {
		log.Fatalf("insert responses: %v", err)
	}
	if err := st.InsertAnswers(panel.Answers); err != nil {
		log.Fatalf("insert answers: %v", err)
	}

	log.Printf("generated panel for %q: %d respondents (%d completed), %d answers, seed %d",
		project.Title, len(panel.Responses), len(panel.Completed()), len(panel.Answers), s)
}

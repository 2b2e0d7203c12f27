package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/insightmill/panelcraft/internal/aggregate"
	"github.com/insightmill/panelcraft/internal/store"
	"github.com/insightmill/panelcraft/internal/survey"
)

type questionResult struct {
	QuestionID string              `json:"question_id"`
	Type       survey.QuestionType `json:"type"`
	Title      string              `json:"title"`
	Results    any                 `json:"results"`
}

func main() {
	dbPath := flag.String("db", "./data/panelcraft.db", "path to SQLite database file")
	projectID := flag.String("project", "", "project id to aggregate")
	outputPath := flag.String("output", "", "path to write results JSON (defaults to stdout)")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("missing required -project")
	}

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	questions, err := st.ListQuestions(*projectID)
	if err != nil {
		log.Fatalf("load questions: %v", err)
	}
	answers, err := st.ListAnswers(*projectID)
	if err != nil {
		log.Fatalf("load answers: %v", err)
	}

	results := make([]questionResult, 0, len(questions))
	for _, q := range questions {
		res := aggregate.ForQuestion(q, answers)
		if res == nil {
			continue
		}
		results = append(results, questionResult{QuestionID: q.ID, Type: q.Type, Title: q.Title, Results: res})
	}

	blob, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		log.Fatalf("encode results: %v", err)
	}

	if *outputPath == "" {
		fmt.Println(string(blob))
		return
	}
	if err := os.WriteFile(*outputPath, blob, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("wrote %d question results to %s", len(results), *outputPath)
}

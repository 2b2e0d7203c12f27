package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/insightmill/panelcraft/internal/report"
	"github.com/insightmill/panelcraft/internal/store"
)

func main() {
	dbPath := flag.String("db", "./data/panelcraft.db", "path to SQLite database file")
	projectID := flag.String("project", "", "project id to report on")
	outputPath := flag.String("output", "", "path to write markdown (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "optional path to also render a PDF")
	flag.Parse()

	if *projectID == "" {
		log.Fatal("missing required -project")
	}

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
	answers, err := st.ListAnswers(*projectID)
	if err != nil {
		log.Fatalf("load answers: %v", err)
	}
	total, completed, err := st.CountResponses(*projectID)
	if err != nil {
		log.Fatalf("count responses: %v", err)
	}

	markdown := report.Build(project, questions, answers, total, completed, time.Now())

	if *outputPath == "" {
		fmt.Print(markdown)
	} else if err := os.WriteFile(*outputPath, []byte(markdown), 0o644); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		renderer := report.NewChromiumPDFRenderer()
		pdf, err := renderer.Render(context.Background(), project.Title, markdown)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		log.Printf("wrote PDF report to %s", *pdfPath)
	}
}

package server

import (
	"context"
	"fmt"
	"net/http"

	"git.appkode.ru/pub/go/failure"

	"card_market/internal/domain/entity"
	"card_market/internal/domain/value"
	"card_market/pkg/errcodes"
	"card_market/pkg/httpx/reply"
	"card_market/pkg/httpx/req"
	"card_market/pkg/rest"
)

type runEnqueuer interface {
	Enqueue(ctx context.Context, stage value.Stage, opts entity.RunOptions) (string, error)
}

type summaryReader interface {
	Latest(ctx context.Context, stage value.Stage) (*entity.RunSummary, error)
}

type RunServer struct {
	enqueuer  runEnqueuer
	summaries summaryReader
}

func NewRunServer(enqueuer runEnqueuer, summaries summaryReader) RunServer {
	return RunServer{
		enqueuer:  enqueuer,
		summaries: summaries,
	}
}

func parseStage(raw string) (value.Stage, error) {
	stage, err := value.ParseStage(raw)
	if err != nil {
		return "", failure.NewInvalidArgumentError(
			err.Error(),
			failure.WithCode(errcodes.InvalidStage),
			failure.WithDescription("stage must be one of keys, ingest, match, aggregate"),
		)
	}
	return stage, nil
}

func (s RunServer) postV1Run(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.RunRequest
	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	stage, err := parseStage(request.Stage)
	if err != nil {
		return err
	}

	taskID, err := s.enqueuer.Enqueue(ctx, stage, entity.RunOptions{
		Category: request.Category,
		Limit:    request.Limit,
		Force:    request.Force,
	})
	if err != nil {
		return fmt.Errorf("enqueuer.Enqueue: %w", err)
	}

	reply.Accepted(ctx, w, rest.RunAccepted{TaskID: taskID, Stage: stage.String()})

	return nil
}

func (s RunServer) getV1LatestRun(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	stage, err := parseStage(r.PathValue("stage"))
	if err != nil {
		return err
	}

	summary, err := s.summaries.Latest(ctx, stage)
	if err != nil {
		return fmt.Errorf("summaries.Latest: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTRunSummary(summary))

	return nil
}

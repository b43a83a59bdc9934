package value

import "fmt"

// Stage is one batch step of the pipeline.
type Stage string

const (
	StageKeys      Stage = "keys"
	StageIngest    Stage = "ingest"
	StageMatch     Stage = "match"
	StageAggregate Stage = "aggregate"
)

var Stages = []Stage{StageKeys, StageIngest, StageMatch, StageAggregate} //nolint:gochecknoglobals

func ParseStage(s string) (Stage, error) {
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

func (s Stage) String() string {
	return string(s)
}

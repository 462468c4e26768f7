package config

type WorkerKeyStruct struct {
	AggregateScoresQueue string
}

var WorkerKey = &WorkerKeyStruct{
	AggregateScoresQueue: "aggregate_scores_queue",
}

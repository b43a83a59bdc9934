package server

// Server groups the HTTP handlers of the pipeline API.
type Server struct {
	RunServer
	ReviewServer
	MatchServer
}

func NewServer(
	runServer RunServer,
	reviewServer ReviewServer,
	matchServer MatchServer,
) Server {
	return Server{
		RunServer:    runServer,
		ReviewServer: reviewServer,
		MatchServer:  matchServer,
	}
}

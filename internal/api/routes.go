package api

// registerRoutes mirrors the teacher's registerXRoutes grouping style
// (one function per concern, each a thin list of r.HandleFunc calls).
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerDriftRoutes()
	s.registerProfileRoutes()
	s.registerAlertRoutes()
}

func (s *Server) registerHealthRoutes() {
	s.router.HandleFunc("/healthcheck", s.handleHealth).Methods("GET")
}

func (s *Server) registerDriftRoutes() {
	s.router.HandleFunc("/drift", s.handleInsertDriftRecord).Methods("POST")
	s.router.HandleFunc("/drift", s.handleGetBinnedDriftRecords).Methods("GET")
}

func (s *Server) registerProfileRoutes() {
	s.router.HandleFunc("/profile", s.handleUpsertProfile).Methods("POST")
}

func (s *Server) registerAlertRoutes() {
	s.router.HandleFunc("/alerts", s.handleGetDriftAlerts).Methods("GET")
}

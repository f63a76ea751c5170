package api

import "net/http"

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	result, err := s.resultFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := s.card(result, false)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=900")
	w.Write(data)
}

package devserver

import (
	"encoding/json"
	"net/http"
	"time"
)

type imageBody struct {
	Image string `json:"image"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondDetail answers in the API's error shape.
func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return true
}

func (s *Server) detectPublic(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decodeBody(w, r, &body) {
		return
	}
	img, ok := decodeImage(body.Image)
	if !ok {
		respondJSON(w, http.StatusOK, map[string]any{"detected": false})
		return
	}
	b := img.Bounds()
	respondJSON(w, http.StatusOK, map[string]any{
		"detected": true,
		"x":        b.Dx() / 4,
		"y":        b.Dy() / 4,
		"w":        b.Dx() / 2,
		"h":        b.Dy() / 2,
	})
}

func (s *Server) verifyPreview(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decodeBody(w, r, &body) {
		return
	}
	if s.Registered() == 0 {
		respondDetail(w, http.StatusBadRequest, "No registered face data")
		return
	}
	s.compare(w, r, body.Image)
}

func (s *Server) adminPreview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Image  string `json:"image"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.mu.Lock()
	_, known := s.opts.Admins[body.UserID]
	s.mu.Unlock()
	if !known {
		respondDetail(w, http.StatusNotFound, "User not found")
		return
	}
	s.compare(w, r, body.Image)
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request, payload string) {
	similarity, threshold, latency := s.comparison()
	if !wait(r, latency) {
		return
	}
	if _, ok := decodeImage(payload); !ok {
		respondJSON(w, http.StatusOK, map[string]any{"detected": false, "similarity": 0, "verified": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"detected":   true,
		"similarity": similarity,
		"verified":   similarity >= threshold,
	})
}

func (s *Server) registerFace(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decodeBody(w, r, &body) {
		return
	}
	if _, ok := decodeImage(body.Image); !ok {
		respondDetail(w, http.StatusBadRequest, "No face detected in image")
		return
	}
	s.mu.Lock()
	s.embeddings = append(s.embeddings, embedding{ID: newID(), CreatedAt: time.Now().UTC().Format(time.RFC3339)})
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Face registered"})
}

func (s *Server) listEmbeddings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]embedding(nil), s.embeddings...)
	s.mu.Unlock()
	if out == nil {
		out = []embedding{}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	var body imageBody
	if !decodeBody(w, r, &body) {
		return
	}
	if _, ok := decodeImage(body.Image); !ok {
		respondDetail(w, http.StatusBadRequest, "No face detected in image")
		return
	}
	if s.Registered() == 0 {
		respondDetail(w, http.StatusNotFound, "No matching user")
		return
	}
	similarity, threshold, _ := s.comparison()
	if similarity < threshold {
		respondJSON(w, http.StatusOK, map[string]any{"success": false, "similarity": similarity, "message": "Face does not match"})
		return
	}
	id := newID()
	s.mu.Lock()
	s.checkIns = append(s.checkIns, checkIn{ID: id, Similarity: similarity, At: time.Now()})
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{"success": true, "similarity": similarity, "message": "Checked in"})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"userId"`
		Password string `json:"password"`
		Image    string `json:"image"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	s.mu.Lock()
	want, known := s.opts.Admins[body.UserID]
	s.mu.Unlock()
	if !known || want != body.Password {
		respondDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if body.Image != "" {
		similarity, threshold, _ := s.comparison()
		if _, ok := decodeImage(body.Image); !ok || similarity < threshold {
			respondDetail(w, http.StatusUnauthorized, "Face verification failed")
			return
		}
	}
	token := newID()
	s.mu.Lock()
	s.tokens[token] = body.UserID
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

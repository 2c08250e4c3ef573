package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/intervue/internal/interview"
	"github.com/abhisek/intervue/internal/report"
	"github.com/abhisek/intervue/internal/session"
)

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	plan, err := req.plan(s.opts.Defaults)
	if err != nil {
		s.fail(c, err)
		return
	}
	h, err := s.svc.StartSession(c.Request.Context(), plan)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h)
}

func (s *Server) resumeSession(c *gin.Context) {
	h, err := s.svc.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

func (s *Server) getSession(c *gin.Context) {
	sum, err := s.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if err := s.svc.SubmitAnswer(c.Request.Context(), c.Param("id"), req.answer()); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) retry(c *gin.Context) {
	if err := s.svc.Retry(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) endSession(c *gin.Context) {
	rep, err := s.svc.EndSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// document loads a scored session for rendering.
func (s *Server) document(c *gin.Context) (report.Document, error) {
	id := c.Param("id")
	sum, err := s.svc.Status(c.Request.Context(), id)
	if err != nil {
		return report.Document{}, err
	}
	if sum.Report == nil {
		if sum.AnalysisError != "" {
			return report.Document{}, &interview.SessionStateError{Op: "report", State: "analysis_failed"}
		}
		return report.Document{}, fmt.Errorf("report %s: %w", id, interview.ErrNotFound)
	}
	return report.Document{Session: sum.Session, Pairs: sum.Pairs, Report: *sum.Report}, nil
}

func (s *Server) getReport(c *gin.Context) {
	doc, err := s.document(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Report)
}

func (s *Server) getReportPDF(c *gin.Context) {
	doc, err := s.document(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.WritePDF(&buf, doc); err != nil {
		s.fail(c, fmt.Errorf("render pdf: %w", err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="intervue-%s.pdf"`, doc.Session.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (s *Server) streamEvents(c *gin.Context) {
	events, cancel, err := s.svc.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ping := time.NewTicker(s.opts.KeepAlive)
	defer ping.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) audioInput(c *gin.Context) (session.AudioInput, bool) {
	in, err := s.svc.Audio(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return in, true
}

func (s *Server) audioOnset(c *gin.Context) {
	if in, ok := s.audioInput(c); ok {
		in.SpeechOnset()
		c.Status(http.StatusAccepted)
	}
}

func (s *Server) audioPartial(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if in, ok := s.audioInput(c); ok {
		in.PartialTranscript(req.Text)
		c.Status(http.StatusAccepted)
	}
}

func (s *Server) audioEnd(c *gin.Context) {
	var req transcriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if in, ok := s.audioInput(c); ok {
		in.SpeechEnd(req.Text)
		c.Status(http.StatusAccepted)
	}
}

func (s *Server) audioPlaybackDone(c *gin.Context) {
	if in, ok := s.audioInput(c); ok {
		in.PlaybackFinished()
		c.Status(http.StatusAccepted)
	}
}

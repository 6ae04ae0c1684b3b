package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/ticketflow/internal/notification/domain"
	tokendomain "github.com/smallbiznis/ticketflow/internal/token/domain"
)

const testNotificationType = "test"

type testNotificationRequest struct {
	Role   string            `json:"role"`
	UserID string            `json:"userId"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data"`
}

type dispatchResult struct {
	Role    tokendomain.Role           `json:"role"`
	UserID  string                     `json:"userId"`
	Outcome notificationdomain.Outcome `json:"outcome"`
	Error   string                     `json:"error,omitempty"`
}

type fanOutResponse struct {
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
	Results []dispatchResult `json:"results"`
}

func toDispatchResult(res notificationdomain.Result) dispatchResult {
	out := dispatchResult{Role: res.Role, UserID: res.UserID, Outcome: res.Outcome}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// SendTestNotification pushes a manual notification to one user, or to every
// registered user of the role when userId is empty.
func (s *Server) SendTestNotification(c *gin.Context) {
	var req testNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role, err := tokendomain.ParseRole(req.Role)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		AbortWithError(c, newValidationError("title", "invalid_title", "title is required"))
		return
	}

	data := make(map[string]string, len(req.Data)+1)
	for k, v := range req.Data {
		data[k] = v
	}
	if data["type"] == "" {
		data["type"] = testNotificationType
	}
	payload := notificationdomain.Payload{Title: title, Body: strings.TrimSpace(req.Body), Data: data}

	ctx := c.Request.Context()
	key := tenantKey(c)
	if userID := strings.TrimSpace(req.UserID); userID != "" {
		res := s.notificationSvc.Dispatch(ctx, key, role, userID, payload)
		respondData(c, http.StatusOK, toDispatchResult(res))
		return
	}

	report, err := s.notificationSvc.FanOut(ctx, key, role, payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	resp := fanOutResponse{
		Sent:    report.Sent(),
		Failed:  report.Failed(),
		Skipped: report.Count(notificationdomain.OutcomeSkipped),
		Results: make([]dispatchResult, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		resp.Results = append(resp.Results, toDispatchResult(res))
	}
	respondData(c, http.StatusOK, resp)
}

func (s *Server) ListBanners(c *gin.Context) {
	banners, err := s.notificationSvc.ListBanners(c.Request.Context(), tenantKey(c), c.Param("customerId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondData(c, http.StatusOK, banners)
}

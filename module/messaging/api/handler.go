// Package api exposes the messaging core over HTTP: request/response
// plumbing only, no business rules.
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mid "github.com/homeproapp/realtorapp-server-sub001/middleware"
	midsec "github.com/homeproapp/realtorapp-server-sub001/middleware/security"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging"
	"github.com/homeproapp/realtorapp-server-sub001/module/messaging/store"
	"github.com/homeproapp/realtorapp-server-sub001/service/push"
	"github.com/homeproapp/realtorapp-server-sub001/tools/errs"
)

type Handler struct {
	svc *messaging.Service
	ws  *push.WSServer
}

func NewHandler(svc *messaging.Service, ws *push.WSServer) *Handler {
	return &Handler{svc: svc, ws: ws}
}

// RegisterRoutes mounts all messaging endpoints under /v1.
func (h *Handler) RegisterRoutes(r gin.IRoutes, auth *midsec.Options) {
	opt := mid.RouteOpt{IsAuth: true, Auth: auth}
	mid.POST(r, "/v1/messages", h.sendMessage, opt)
	mid.POST(r, "/v1/conversations/:id/read", h.markRead, opt)
	mid.GET(r, "/v1/conversations", h.listConversations, opt)
	mid.GET(r, "/v1/conversations/:id/messages", h.getHistory, opt)
	mid.PATCH(r, "/v1/conversations/:id/messages/:seq", h.editMessage, opt)
	mid.DELETE(r, "/v1/conversations/:id/messages/:seq", h.deleteMessage, opt)
	mid.GET(r, "/v1/ws", h.serveWS, opt)
}

func (h *Handler) sendMessage(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	var req messaging.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "bad payload"})
		return
	}
	msg, err := h.svc.SendMessage(c.Request.Context(), p, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msg})
}

type markReadRequest struct {
	UptoSeq int64 `json:"uptoSeq"`
}

func (h *Handler) markRead(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "bad payload"})
		return
	}
	res, err := h.svc.MarkRead(c.Request.Context(), p, c.Param("id"), req.UptoSeq)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *Handler) listConversations(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	limit := intQuery(c, "limit", 20)
	offset := intQuery(c, "offset", 0)
	res, err := h.svc.ListConversations(c.Request.Context(), p, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *Handler) getHistory(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	cur := store.Cursor{
		Before:    int64Query(c, "before", 0),
		BeforeSeq: int64Query(c, "beforeId", 0),
	}
	limit := intQuery(c, "limit", 50)
	res, err := h.svc.GetHistory(c.Request.Context(), p, c.Param("id"), cur, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

type editMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) editMessage(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "bad seq"})
		return
	}
	var req editMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "bad payload"})
		return
	}
	if err := h.svc.EditMessage(c.Request.Context(), p, c.Param("id"), seq, req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

func (h *Handler) deleteMessage(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	seq, err := strconv.ParseInt(c.Param("seq"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "bad seq"})
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), p, c.Param("id"), seq); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

func (h *Handler) serveWS(c *gin.Context) {
	p, ok := midsec.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"msg": "no principal"})
		return
	}
	if err := h.ws.Serve(c.Writer, c.Request, p.UserID); err != nil {
		// Upgrade already wrote the error response.
		return
	}
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.CodeOf(err) {
	case errs.RecordNotFoundError:
		status = http.StatusNotFound
	case errs.ArgsError:
		status = http.StatusBadRequest
	case errs.ConflictError:
		status = http.StatusConflict
	case errs.UnavailableError:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": errs.CodeOf(err), "msg": err.Error()})
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func int64Query(c *gin.Context, name string, def int64) int64 {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

package controller

import (
	"assessment_backend/internal/service"
	"assessment_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type FormController struct {
	Session  *service.SessionService
	Access   *service.AccessService
	Registry *service.ToolRegistry
}

func NewFormController(session *service.SessionService, access *service.AccessService, registry *service.ToolRegistry) *FormController {
	return &FormController{Session: session, Access: access, Registry: registry}
}

type toolInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Order  int    `json:"order"`
	Pages  int    `json:"pages"`
	Scored bool   `json:"scored"`
}

type renderResponse struct {
	Tool   toolInfo             `json:"tool"`
	Resume *service.ResumeState `json:"resume"`
}

// checkAccess gates a request through the progression gate. Returns
// false after writing the response when the client may not proceed.
func (c *FormController) checkAccess(ctx *gin.Context, clientID uint, toolID string) bool {
	decision, err := c.Access.CanAccessTool(clientID, toolID)
	if err != nil {
		util.ServiceError(ctx, err)
		return false
	}
	if !decision.Allowed {
		util.Forbidden(ctx, decision.Reason)
		return false
	}
	return true
}

// @Summary Render data for a tool, including any resumable attempt state
// @Tags forms
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/render [get]
func (c *FormController) Render(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	toolID := ctx.Param("toolId")
	tool := c.Registry.Get(toolID)
	if tool == nil {
		util.NotFoundResponse(ctx)
		return
	}

	if !c.checkAccess(ctx, user.ClientID, toolID) {
		return
	}

	resume, err := c.Session.Resume(ctx.Request.Context(), user.ClientID, toolID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, renderResponse{
		Tool: toolInfo{
			ID:     tool.ID,
			Name:   tool.Name,
			Order:  tool.Order,
			Pages:  tool.Pages,
			Scored: tool.Scored,
		},
		Resume: resume,
	})
}

// @Summary Save one page of form data into the active attempt
// @Tags forms
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Param page path int true "Page number"
// @Param body body map[string]string true "Form field values"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/pages/{page} [post]
func (c *FormController) SavePage(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	toolID := ctx.Param("toolId")
	page, err := strconv.Atoi(ctx.Param("page"))
	if err != nil {
		util.BadRequest(ctx, "invalid page")
		return
	}

	var formData map[string]string
	if err := ctx.ShouldBindJSON(&formData); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if !c.checkAccess(ctx, user.ClientID, toolID) {
		return
	}

	if err := c.Session.SavePageData(ctx.Request.Context(), user.ClientID, toolID, page, formData); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Submit the completed attempt for scoring and synthesis
// @Tags forms
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/submit [post]
func (c *FormController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	toolID := ctx.Param("toolId")
	if !c.checkAccess(ctx, user.ClientID, toolID) {
		return
	}

	envelope, err := c.Session.ProcessFinalSubmission(ctx.Request.Context(), user.ClientID, toolID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, envelope)
}

// @Summary Enter edit mode, seeding a draft from the latest completed attempt
// @Tags forms
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/edit [post]
func (c *FormController) EnterEditMode(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Session.EnterEditMode(ctx.Request.Context(), user.ClientID, ctx.Param("toolId")); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Cancel an in-progress edit, keeping the completed attempt
// @Tags forms
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/cancel-edit [post]
func (c *FormController) CancelEdit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Session.CancelEdit(ctx.Request.Context(), user.ClientID, ctx.Param("toolId")); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Discard all draft state for a clean retake
// @Tags forms
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/start-fresh [post]
func (c *FormController) StartFresh(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Session.StartFresh(ctx.Request.Context(), user.ClientID, ctx.Param("toolId")); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

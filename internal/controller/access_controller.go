package controller

import (
	"assessment_backend/internal/service"
	"assessment_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AccessController struct {
	Access *service.AccessService
}

func NewAccessController(access *service.AccessService) *AccessController {
	return &AccessController{Access: access}
}

// @Summary Check whether the current client may enter a tool
// @Tags access
// @Produce json
// @Security ApiKeyAuth
// @Param toolId path string true "Tool ID"
// @Success 200 {object} util.Response
// @Router /api/tools/{toolId}/access [get]
func (c *AccessController) CanAccess(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	decision, err := c.Access.CanAccessTool(user.ClientID, ctx.Param("toolId"))
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, decision)
}

// @Summary List the current client's progression state across all tools
// @Tags access
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/access [get]
func (c *AccessController) MyAccess(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	views, err := c.Access.GetStudentAccess(user.ClientID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, views)
}

type lockRequest struct {
	Reason string `json:"reason"`
}

// @Summary Admin: initialize progression records for a student
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path int true "Client ID"
// @Success 201 {object} util.Response
// @Router /api/admin/students/{clientId}/init [post]
func (c *AccessController) InitializeStudent(ctx *gin.Context) {
	clientID := util.MustParseUint(ctx.Param("clientId"))
	if clientID == 0 {
		util.BadRequest(ctx, "invalid client id")
		return
	}

	if err := c.Access.InitializeStudent(clientID); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"success": true})
}

// @Summary Admin: unlock a tool for a student
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path int true "Client ID"
// @Param toolId path string true "Tool ID"
// @Param body body lockRequest false "Reason"
// @Success 200 {object} util.Response
// @Router /api/admin/students/{clientId}/tools/{toolId}/unlock [post]
func (c *AccessController) AdminUnlock(ctx *gin.Context) {
	admin := util.GetUserFromContext(ctx)
	if admin == nil {
		util.Unauthorized(ctx)
		return
	}

	clientID := util.MustParseUint(ctx.Param("clientId"))
	if clientID == 0 {
		util.BadRequest(ctx, "invalid client id")
		return
	}

	var req lockRequest
	_ = ctx.ShouldBindJSON(&req)

	if err := c.Access.AdminUnlockTool(clientID, ctx.Param("toolId"), admin.Email, req.Reason); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Admin: lock a tool for a student
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path int true "Client ID"
// @Param toolId path string true "Tool ID"
// @Param body body lockRequest false "Reason"
// @Success 200 {object} util.Response
// @Router /api/admin/students/{clientId}/tools/{toolId}/lock [post]
func (c *AccessController) AdminLock(ctx *gin.Context) {
	admin := util.GetUserFromContext(ctx)
	if admin == nil {
		util.Unauthorized(ctx)
		return
	}

	clientID := util.MustParseUint(ctx.Param("clientId"))
	if clientID == 0 {
		util.BadRequest(ctx, "invalid client id")
		return
	}

	var req lockRequest
	_ = ctx.ShouldBindJSON(&req)

	if err := c.Access.AdminLockTool(clientID, ctx.Param("toolId"), admin.Email, req.Reason); err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"success": true})
}

// @Summary Admin: view a student's progression state
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param clientId path int true "Client ID"
// @Success 200 {object} util.Response
// @Router /api/admin/students/{clientId}/access [get]
func (c *AccessController) StudentAccess(ctx *gin.Context) {
	clientID := util.MustParseUint(ctx.Param("clientId"))
	if clientID == 0 {
		util.BadRequest(ctx, "invalid client id")
		return
	}

	views, err := c.Access.GetStudentAccess(clientID)
	if err != nil {
		util.ServiceError(ctx, err)
		return
	}

	util.Success(ctx, views)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/purelyricky/avashift-com-sub000/internal/dto"
	"github.com/purelyricky/avashift-com-sub000/internal/service"
	"github.com/purelyricky/avashift-com-sub000/pkg/response"
)

// ProjectHandler 项目与成员 HTTP 处理器
type ProjectHandler struct {
	projectSvc service.ProjectService
}

// NewProjectHandler 创建 ProjectHandler
func NewProjectHandler(projectSvc service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectSvc: projectSvc}
}

// CreateProject 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.CreateProject(c.Request.Context(), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, project)
}

// ListProjects 当前用户可见的项目
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	list, err := h.projectSvc.ListProjects(c.Request.Context(), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// GetProject 项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	project, err := h.projectSvc.GetProject(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, project)
}

// GetProjectHealth 项目健康度
// GET /api/v1/projects/:id/health
func (h *ProjectHandler) GetProjectHealth(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	health, err := h.projectSvc.GetProjectHealth(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, health)
}

// ── 成员 ──

// AddMember 添加项目成员
// POST /api/v1/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	member, err := h.projectSvc.AddMember(c.Request.Context(), c.Param("id"), &req, adminID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, member)
}

// ListMembers 项目成员列表
// GET /api/v1/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	callerID, role, ok := mustGetCaller(c)
	if !ok {
		return
	}

	members, err := h.projectSvc.ListMembers(c.Request.Context(), c.Param("id"), callerID, role)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, gin.H{"list": members})
}

// DeactivateMember 停用成员（保留历史）
// DELETE /api/v1/projects/:id/members/:userId
func (h *ProjectHandler) DeactivateMember(c *gin.Context) {
	adminID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.projectSvc.DeactivateMember(c.Request.Context(), c.Param("id"), c.Param("userId"), adminID); err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, dto.ActionResult{Success: true})
}

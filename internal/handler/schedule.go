// Package handler 提供HTTP请求处理器
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yueban/yueban/internal/config"
	"github.com/yueban/yueban/internal/metrics"
	"github.com/yueban/yueban/internal/repository"
	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/quota"
	"github.com/yueban/yueban/pkg/scheduler"
	"github.com/yueban/yueban/pkg/scheduler/problem"
	"github.com/yueban/yueban/pkg/scheduler/solver"
	"github.com/yueban/yueban/pkg/stats"
	"github.com/yueban/yueban/pkg/validator"
)

// ScheduleHandler 排班处理器
type ScheduleHandler struct {
	engine    *scheduler.Engine
	employees repository.EmployeeRepository // 可为 nil（名册仅来自请求体）
	schedules repository.ScheduleRepository // 可为 nil（无数据库运行）
	sched     config.SchedulerConfig
}

// NewScheduleHandler 创建排班处理器
func NewScheduleHandler(engine *scheduler.Engine, employees repository.EmployeeRepository, schedules repository.ScheduleRepository, sched config.SchedulerConfig) *ScheduleHandler {
	return &ScheduleHandler{engine: engine, employees: employees, schedules: schedules, sched: sched}
}

// resolveEmployees 解析请求名册；请求体未给名册时读取员工仓储的在职快照
func (h *ScheduleHandler) resolveEmployees(r *http.Request, inputs []EmployeeInput) ([]*model.Employee, *errors.AppError) {
	if len(inputs) == 0 && h.employees != nil {
		employees, err := h.employees.ListActive(r.Context())
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabaseError, "读取员工名册失败")
		}
		return employees, nil
	}
	return parseEmployees(inputs)
}

// baseOptions 由服务配置派生生成选项，请求体可再覆盖
func (h *ScheduleHandler) baseOptions() scheduler.GenerateOptions {
	opts := scheduler.DefaultGenerateOptions()
	if h.sched.TimeBudget > 0 {
		opts.Solver.TimeBudget = h.sched.TimeBudget.Std()
	}
	opts.Solver.MaxNodes = h.sched.MaxNodes
	opts.DisableExact = h.sched.DisableExact
	opts.Problem.RequireFullCoverage = h.sched.RequireFullCoverage
	if h.sched.QuotaWeight > 0 || h.sched.FairnessWeight > 0 || h.sched.CoverageWeight > 0 {
		opts.Problem.Weights = problem.Weights{
			Quota:    h.sched.QuotaWeight,
			Fairness: h.sched.FairnessWeight,
			Coverage: h.sched.CoverageWeight,
		}
	}
	return opts
}

// EmployeeInput 员工输入
type EmployeeInput struct {
	ID            string   `json:"id"`
	Name          string   `json:"name,omitempty"`
	Tier          string   `json:"tier"` // high / low
	Active        *bool    `json:"active,omitempty"`
	OffShifts     []string `json:"off_shifts,omitempty"` // "d05/night"
	QuotaOverride *int     `json:"quota_override,omitempty"`
}

// PinInput 钉入输入
type PinInput struct {
	EmployeeID string `json:"employee_id"`
	Slot       string `json:"slot"`
	Forbid     bool   `json:"forbid,omitempty"`
}

// GenerateRequest 排班生成请求
type GenerateRequest struct {
	Year      int               `json:"year"`
	Month     int               `json:"month"`
	Employees []EmployeeInput   `json:"employees"`
	Pins      []PinInput        `json:"pins,omitempty"`
	Prior     map[string]string `json:"prior,omitempty"` // 冻结的已有排班网格
	Options   *OptionsInput     `json:"options,omitempty"`
}

// OptionsInput 生成选项
type OptionsInput struct {
	TimeBudgetSeconds int      `json:"time_budget_seconds,omitempty"`
	DisableExact      bool     `json:"disable_exact,omitempty"`
	AllowPartial      bool     `json:"allow_partial,omitempty"` // 允许留空班位
	QuotaWeight       *float64 `json:"quota_weight,omitempty"`
	FairnessWeight    *float64 `json:"fairness_weight,omitempty"`
	CoverageWeight    *float64 `json:"coverage_weight,omitempty"`
}

// GenerateResponse 排班生成响应
type GenerateResponse struct {
	Success     bool                `json:"success"`
	ScheduleID  string              `json:"schedule_id,omitempty"`
	Status      solver.Status       `json:"status"`
	Solver      string              `json:"solver"`
	Grid        map[string]string   `json:"grid,omitempty"`
	Objective   float64             `json:"objective"`
	Diagnostics []solver.Diagnostic `json:"diagnostics,omitempty"`
	Duration    string              `json:"duration"`
	Message     string              `json:"message,omitempty"`
}

// Generate 生成月度排班
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	m, err := model.NewMonth(req.Year, req.Month)
	if err != nil {
		respondAppError(w, err)
		return
	}
	employees, appErr := h.resolveEmployees(r, req.Employees)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	opts := h.baseOptions()
	if req.Options != nil {
		if req.Options.TimeBudgetSeconds > 0 {
			opts.Solver.TimeBudget = time.Duration(req.Options.TimeBudgetSeconds) * time.Second
		}
		opts.DisableExact = req.Options.DisableExact
		opts.Problem.RequireFullCoverage = !req.Options.AllowPartial
		if req.Options.QuotaWeight != nil {
			opts.Problem.Weights.Quota = *req.Options.QuotaWeight
		}
		if req.Options.FairnessWeight != nil {
			opts.Problem.Weights.Fairness = *req.Options.FairnessWeight
		}
		if req.Options.CoverageWeight != nil {
			opts.Problem.Weights.Coverage = *req.Options.CoverageWeight
		}
	}
	for _, p := range req.Pins {
		slot, err := model.ParseSlot(p.Slot)
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的班位: "+p.Slot))
			return
		}
		opts.Problem.Pins = append(opts.Problem.Pins, problem.Pin{EmployeeID: p.EmployeeID, Slot: slot, Forbid: p.Forbid})
	}
	if len(req.Prior) > 0 {
		prior, appErr := parseGrid(m, req.Prior)
		if appErr != nil {
			respondError(w, appErr)
			return
		}
		opts.Problem.Prior = prior
	}

	if opts.DisableExact {
		metrics.RecordFallback("disabled_by_request")
	}
	result, err := h.engine.Generate(r.Context(), m, employees, opts)
	if err != nil {
		if result != nil {
			metrics.RecordGeneration(result.Solver, string(result.Status), result.Duration)
		}
		respondAppError(w, err)
		return
	}
	metrics.RecordGeneration(result.Solver, string(result.Status), result.Duration)

	resp := GenerateResponse{
		Success:     true,
		Status:      result.Status,
		Solver:      result.Solver,
		Objective:   result.Objective,
		Diagnostics: result.Diagnostics,
		Duration:    result.Duration.String(),
		Message:     result.Message,
	}
	if result.Assignment != nil {
		resp.Grid = result.Assignment.Grid()
		resp.ScheduleID = h.persist(r, result)
	}
	respondJSON(w, http.StatusOK, resp)
}

// persist 落库排班结果，无数据库时生成临时 ID
func (h *ScheduleHandler) persist(r *http.Request, result *solver.Result) string {
	if h.schedules == nil {
		return uuid.New().String()
	}
	id, err := h.schedules.Save(r.Context(), result.Assignment, result.Solver, result.Objective)
	if err != nil {
		// 落库失败不阻断响应，排班结果仍然返回
		logger.Error().Err(err).
			Str("solver", result.Solver).
			Msg("排班结果落库失败")
		return ""
	}
	return id
}

// LatestResponse 最新排班查询响应
type LatestResponse struct {
	Year  int               `json:"year"`
	Month int               `json:"month"`
	Grid  map[string]string `json:"grid"`
}

// Latest 查询指定月份最新保存的排班
func (h *ScheduleHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}
	if h.schedules == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "排班仓储不可用（无数据库模式）"))
		return
	}

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "无效的 year 参数"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		respondError(w, errors.New(errors.CodeInvalidInput, "无效的 month 参数"))
		return
	}
	m, err := model.NewMonth(year, month)
	if err != nil {
		respondAppError(w, err)
		return
	}

	a, err := h.schedules.Latest(r.Context(), m.Year, int(m.Month))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询排班失败"))
		return
	}
	if a == nil {
		respondError(w, errors.New(errors.CodeNotFound, m.Key()+" 月没有已保存的排班"))
		return
	}

	respondJSON(w, http.StatusOK, LatestResponse{Year: a.Year, Month: a.Month, Grid: a.Grid()})
}

// RepairRequest 应急修复请求
type RepairRequest struct {
	Year         int               `json:"year"`
	Month        int               `json:"month"`
	Employees    []EmployeeInput   `json:"employees"`
	Grid         map[string]string `json:"grid"`
	AbsentID     string            `json:"absent_id"`
	AffectedDays []int             `json:"affected_days"`
}

// RepairResponse 应急修复响应
type RepairResponse struct {
	Success     bool                `json:"success"`
	Grid        map[string]string   `json:"grid"`
	Reassigned  int                 `json:"reassigned"`
	Unfilled    int                 `json:"unfilled"`
	Diagnostics []solver.Diagnostic `json:"diagnostics,omitempty"`
}

// Repair 对已发布排班做局部修复
func (h *ScheduleHandler) Repair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req RepairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	m, err := model.NewMonth(req.Year, req.Month)
	if err != nil {
		respondAppError(w, err)
		return
	}
	employees, appErr := h.resolveEmployees(r, req.Employees)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	prior, appErr := parseGrid(m, req.Grid)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	result, err := h.engine.Repair(r.Context(), m, employees, prior, req.AbsentID, req.AffectedDays)
	if err != nil {
		metrics.RecordRepair("error")
		respondAppError(w, err)
		return
	}
	metrics.RecordRepair("ok")

	respondJSON(w, http.StatusOK, RepairResponse{
		Success:     true,
		Grid:        result.Assignment.Grid(),
		Reassigned:  result.Reassigned,
		Unfilled:    result.Unfilled,
		Diagnostics: result.Diagnostics,
	})
}

// ValidateRequest 手工分配校验请求
type ValidateRequest struct {
	Year       int               `json:"year"`
	Month      int               `json:"month"`
	Employees  []EmployeeInput   `json:"employees"`
	Grid       map[string]string `json:"grid,omitempty"`
	EmployeeID string            `json:"employee_id"`
	Slot       string            `json:"slot"`
}

// ValidateResponse 手工分配校验响应
type ValidateResponse struct {
	Valid     bool                 `json:"valid"`
	Conflicts []validator.Conflict `json:"conflicts,omitempty"`
}

// Validate 校验手工分配
func (h *ScheduleHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	m, err := model.NewMonth(req.Year, req.Month)
	if err != nil {
		respondAppError(w, err)
		return
	}
	employees, appErr := h.resolveEmployees(r, req.Employees)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	slot, err := model.ParseSlot(req.Slot)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的班位: "+req.Slot))
		return
	}

	var a *model.Assignment
	if len(req.Grid) > 0 {
		a, appErr = parseGrid(m, req.Grid)
		if appErr != nil {
			respondError(w, appErr)
			return
		}
	}

	conflicts := validator.ValidateManual(m, employees, a, req.EmployeeID, slot)
	respondJSON(w, http.StatusOK, ValidateResponse{Valid: len(conflicts) == 0, Conflicts: conflicts})
}

// StatsRequest 统计请求
type StatsRequest struct {
	Year      int               `json:"year"`
	Month     int               `json:"month"`
	Employees []EmployeeInput   `json:"employees"`
	Grid      map[string]string `json:"grid"`
}

// Stats 计算排班统计
func (h *ScheduleHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	m, err := model.NewMonth(req.Year, req.Month)
	if err != nil {
		respondAppError(w, err)
		return
	}
	employees, appErr := h.resolveEmployees(r, req.Employees)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	a, appErr := parseGrid(m, req.Grid)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	quotas, err := quota.ResolveAll(m.Days(), employees)
	if err != nil {
		respondAppError(w, err)
		return
	}
	summary := stats.Compute(m, employees, quotas, a)
	metrics.RecordQuality(m.Key(), summary.UnfilledSlots, summary.FairnessScore)
	respondJSON(w, http.StatusOK, summary)
}

// parseEmployees 把输入DTO转换为领域模型
func parseEmployees(inputs []EmployeeInput) ([]*model.Employee, *errors.AppError) {
	employees := make([]*model.Employee, 0, len(inputs))
	for _, in := range inputs {
		if in.ID == "" {
			return nil, errors.New(errors.CodeInvalidInput, "员工ID不能为空")
		}
		tier := model.ExperienceTier(in.Tier)
		if tier != model.TierHigh && tier != model.TierLow {
			return nil, errors.New(errors.CodeInvalidInput, "无效的经验层级: "+in.Tier)
		}
		emp := &model.Employee{
			ID:            in.ID,
			Name:          in.Name,
			Tier:          tier,
			Active:        true,
			QuotaOverride: in.QuotaOverride,
		}
		if in.Active != nil {
			emp.Active = *in.Active
		}
		for _, s := range in.OffShifts {
			slot, err := model.ParseSlot(s)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的排休班位: "+s)
			}
			emp.OffShifts = append(emp.OffShifts, slot)
		}
		employees = append(employees, emp)
	}
	return employees, nil
}

// parseGrid 把 "dNN/kind" -> 员工ID 的网格解析为排班
func parseGrid(m *model.Month, grid map[string]string) (*model.Assignment, *errors.AppError) {
	a := model.NewAssignment(m)
	for key, empID := range grid {
		slot, err := model.ParseSlot(key)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的班位: "+key)
		}
		if !m.Contains(slot) {
			return nil, errors.New(errors.CodeInvalidInput, "班位不在本月内: "+key)
		}
		if empID != model.Unassigned {
			a.Assign(slot, empID)
		}
	}
	return a, nil
}

// respondJSON 返回JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError 返回错误响应
func respondError(w http.ResponseWriter, err *errors.AppError) {
	respondJSON(w, err.HTTPStatus, map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    err.Code,
			"message": err.Message,
			"details": err.Details,
		},
	})
}

// respondAppError 把任意错误映射为错误响应
func respondAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		respondError(w, appErr)
		return
	}
	respondError(w, errors.Wrap(err, errors.CodeInternal, "内部错误"))
}

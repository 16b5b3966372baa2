// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"

	"github.com/yueban/yueban/internal/repository"
	"github.com/yueban/yueban/pkg/errors"
)

// EmployeeHandler 员工查询处理器，只读
type EmployeeHandler struct {
	employees repository.EmployeeRepository // 可为 nil（无数据库运行）
}

// NewEmployeeHandler 创建员工查询处理器
func NewEmployeeHandler(employees repository.EmployeeRepository) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// List 返回全部在职员工
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.employees == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "员工仓储不可用（无数据库模式）"))
		return
	}
	employees, err := h.employees.ListActive(r.Context())
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询员工列表失败"))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":     len(employees),
		"employees": employees,
	})
}

// Get 按 ID 查询单个员工
func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.employees == nil {
		respondError(w, errors.New(errors.CodeDatabaseError, "员工仓储不可用（无数据库模式）"))
		return
	}
	id := r.PathValue("id")
	if id == "" {
		respondError(w, errors.New(errors.CodeInvalidInput, "缺少员工ID"))
		return
	}
	emp, err := h.employees.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			respondAppError(w, err)
		} else {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询员工失败"))
		}
		return
	}
	respondJSON(w, http.StatusOK, emp)
}

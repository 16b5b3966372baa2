// yuebanctl 排班引擎命令行工具
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yueban/yueban/pkg/errors"
	"github.com/yueban/yueban/pkg/logger"
	"github.com/yueban/yueban/pkg/model"
	"github.com/yueban/yueban/pkg/quota"
	"github.com/yueban/yueban/pkg/scheduler"
	"github.com/yueban/yueban/pkg/scheduler/problem"
	"github.com/yueban/yueban/pkg/stats"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

// rosterFile 排班输入文件
type rosterFile struct {
	Year      int           `yaml:"year"`
	Month     int           `yaml:"month"`
	Employees []rosterEntry `yaml:"employees"`
	Pins      []rosterPin   `yaml:"pins"`
}

type rosterEntry struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Tier          string   `yaml:"tier"`
	Active        *bool    `yaml:"active"`
	OffShifts     []string `yaml:"off_shifts"`
	QuotaOverride *int     `yaml:"quota_override"`
}

type rosterPin struct {
	EmployeeID string `yaml:"employee_id"`
	Slot       string `yaml:"slot"`
	Forbid     bool   `yaml:"forbid"`
}

func main() {
	logger.Init(logger.Config{Level: "warn", Format: "console"})

	root := &cobra.Command{
		Use:   "yuebanctl",
		Short: "月度排班引擎命令行工具",
		Long:  "yuebanctl 读取 YAML 人员名册，生成、修复并统计月度排班。",
	}
	root.AddCommand(newGenerateCmd(), newRepairCmd(), newStatsCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		rosterPath   string
		budget       time.Duration
		fallbackOnly bool
		allowPartial bool
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "生成月度排班",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, employees, pins, err := loadRoster(rosterPath)
			if err != nil {
				return err
			}

			opts := scheduler.DefaultGenerateOptions()
			opts.Solver.TimeBudget = budget
			opts.DisableExact = fallbackOnly
			opts.Problem.RequireFullCoverage = !allowPartial
			opts.Problem.Pins = pins

			result, err := scheduler.New().Generate(context.Background(), m, employees, opts)
			if err != nil {
				return err
			}

			fmt.Printf("状态: %s（求解器 %s，耗时 %s，目标值 %.1f）\n",
				result.Status, result.Solver, result.Duration.Round(time.Millisecond), result.Objective)
			for _, d := range result.Diagnostics {
				fmt.Printf("  诊断: %s %s %s\n", d.Slot, d.EmployeeID, d.Reason)
			}
			if result.Assignment == nil {
				return nil
			}

			printGrid(m, result.Assignment)
			if outputPath != "" {
				return writeJSON(outputPath, result.Assignment)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "roster.yaml", "YAML 名册文件")
	cmd.Flags().DurationVar(&budget, "budget", 30*time.Second, "求解时间预算")
	cmd.Flags().BoolVar(&fallbackOnly, "fallback-only", false, "跳过精确求解器，直接使用回溯")
	cmd.Flags().BoolVar(&allowPartial, "allow-partial", false, "允许留空班位（覆盖作为软目标）")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "排班结果 JSON 输出文件")
	return cmd
}

func newRepairCmd() *cobra.Command {
	var (
		rosterPath   string
		schedulePath string
		absentID     string
		days         []int
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "对已有排班做缺勤修复",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, employees, _, err := loadRoster(rosterPath)
			if err != nil {
				return err
			}
			prior, err := readSchedule(schedulePath)
			if err != nil {
				return err
			}

			result, err := scheduler.New().Repair(context.Background(), m, employees, prior, absentID, days)
			if err != nil {
				return err
			}

			fmt.Printf("修复完成: 改派 %d 个班位，%d 个未能补上\n", result.Reassigned, result.Unfilled)
			for _, d := range result.Diagnostics {
				fmt.Printf("  诊断: %s %s %s\n", d.Slot, d.EmployeeID, d.Reason)
			}
			printGrid(m, result.Assignment)
			return writeJSON(schedulePath, result.Assignment)
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "roster.yaml", "YAML 名册文件")
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "schedule.json", "排班结果 JSON 文件")
	cmd.Flags().StringVar(&absentID, "absent", "", "缺勤员工 ID")
	cmd.Flags().IntSliceVar(&days, "days", nil, "受影响的日期（1 起）")
	cmd.MarkFlagRequired("absent")
	cmd.MarkFlagRequired("days")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var (
		rosterPath   string
		schedulePath string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "统计排班结果",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, employees, _, err := loadRoster(rosterPath)
			if err != nil {
				return err
			}
			a, err := readSchedule(schedulePath)
			if err != nil {
				return err
			}

			quotas, err := quota.ResolveAll(m.Days(), employees)
			if err != nil {
				return err
			}
			summary := stats.Compute(m, employees, quotas, a)

			fmt.Printf("%s：已填 %d / %d 班位，公平性 %.1f\n",
				summary.MonthKey, summary.FilledSlots, summary.TotalSlots, summary.FairnessScore)
			for _, st := range summary.Employees {
				fmt.Printf("  %-8s %-6s 白班 %2d 夜班 %2d 合计 %2d / 配额 %2d（偏差 %+d）\n",
					st.EmployeeID, st.Tier, st.DayShifts, st.NightShift, st.Total, st.Quota, st.Deviation)
			}
			for _, s := range summary.Suggestions {
				fmt.Printf("  建议: %s\n", s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rosterPath, "roster", "r", "roster.yaml", "YAML 名册文件")
	cmd.Flags().StringVarP(&schedulePath, "schedule", "s", "schedule.json", "排班结果 JSON 文件")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "打印版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("yuebanctl %s (%s)\n", Version, GitCommit)
		},
	}
}

// loadRoster 解析 YAML 名册
func loadRoster(path string) (*model.Month, []*model.Employee, []problem.Pin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("读取名册失败: %w", err)
	}
	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, nil, nil, fmt.Errorf("解析名册失败: %w", err)
	}

	m, err := model.NewMonth(roster.Year, roster.Month)
	if err != nil {
		return nil, nil, nil, err
	}

	var employees []*model.Employee
	for _, e := range roster.Employees {
		tier := model.ExperienceTier(e.Tier)
		if tier != model.TierHigh && tier != model.TierLow {
			return nil, nil, nil, errors.New(errors.CodeValidationFail,
				fmt.Sprintf("员工 %s 的经验层级无效: %q（应为 high 或 low）", e.ID, e.Tier))
		}
		emp := &model.Employee{
			ID:            e.ID,
			Name:          e.Name,
			Tier:          tier,
			Active:        true,
			QuotaOverride: e.QuotaOverride,
		}
		if e.Active != nil {
			emp.Active = *e.Active
		}
		for _, s := range e.OffShifts {
			slot, err := model.ParseSlot(s)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("员工 %s 的排休班位无效: %w", e.ID, err)
			}
			emp.OffShifts = append(emp.OffShifts, slot)
		}
		employees = append(employees, emp)
	}

	var pins []problem.Pin
	for _, p := range roster.Pins {
		slot, err := model.ParseSlot(p.Slot)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("钉入班位无效: %w", err)
		}
		pins = append(pins, problem.Pin{EmployeeID: p.EmployeeID, Slot: slot, Forbid: p.Forbid})
	}
	return m, employees, pins, nil
}

// readSchedule 读取排班结果 JSON
func readSchedule(path string) (*model.Assignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取排班文件失败: %w", err)
	}
	var a model.Assignment
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("解析排班文件失败: %w", err)
	}
	return &a, nil
}

// writeJSON 把排班结果写入文件
func writeJSON(path string, a *model.Assignment) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// printGrid 按日打印排班表
func printGrid(m *model.Month, a *model.Assignment) {
	fmt.Printf("\n%s 排班表：\n", m.Key())
	for day := 1; day <= m.Days(); day++ {
		var parts []string
		for _, kind := range model.SlotKinds() {
			slot := model.ShiftSlot{Day: day, Kind: kind}
			empID := a.EmployeeAt(slot)
			if empID == model.Unassigned {
				empID = "--"
			}
			parts = append(parts, fmt.Sprintf("%s=%s", kind, empID))
		}
		fmt.Printf("  第 %2d 天  %s\n", day, strings.Join(parts, "  "))
	}
}

package service

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smartflow-mes/smartflow-api/internal/models"
	appErrors "github.com/smartflow-mes/smartflow-api/pkg/errors"
)

const (
	// setupMinutes is the fixed mold-change allowance added to every job.
	setupMinutes = 10

	// utilizationShiftHours is the assumed daily machine availability used
	// as the utilization denominator. Intentionally a flat constant rather
	// than the per-machine shift length.
	utilizationShiftHours = 10

	defaultShiftStart = "08:00"
	defaultShiftEnd   = "18:00"
)

// ScheduleInput snapshots the tenant data consumed by one scheduling run.
// The engine never mutates it.
type ScheduleInput struct {
	Equipment []models.Equipment
	Orders    []models.Order
	Products  []models.Product
}

// ScheduledJob is one produced assignment. Immutable once emitted.
type ScheduledJob struct {
	OrderID         string
	OrderNumber     string
	ProductCode     string
	MachineID       string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
	IsOnTime        bool
	DueDate         time.Time
	Quantity        int
}

// RunMetrics summarises a completed run.
type RunMetrics struct {
	OnTimeRate   float64
	Utilization  float64
	TotalOrders  int
	OnTimeOrders int
	LateOrders   int
}

// ScheduleRun is the full output of one scheduling pass.
type ScheduleRun struct {
	ScheduleID    string
	Jobs          []ScheduledJob
	Metrics       RunMetrics
	SkippedOrders []string
	GeneratedAt   time.Time
}

// shiftWindow is a machine's daily operating interval in minutes since midnight.
type shiftWindow struct {
	start int
	end   int
}

func (w shiftWindow) startOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), w.start/60, w.start%60, 0, 0, day.Location())
}

func (w shiftWindow) endOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), w.end/60, w.end%60, 0, 0, day.Location())
}

// machineState couples a machine's capabilities with its occupancy cursor.
type machineState struct {
	machineID       string
	tonnage         int
	capacityPerHour int
	shift           shiftWindow
	nextAvailable   time.Time
}

// ProductionScheduler runs one greedy scheduling pass over an in-memory
// snapshot. Each instance owns its occupancy state, so independent runs
// (one per tenant) may execute concurrently; a single run is strictly
// sequential because every assignment shifts machine availability for the
// orders that follow.
type ProductionScheduler struct {
	machines []*machineState
	products map[string]models.Product
	orders   []models.Order
	now      time.Time
}

// NewProductionScheduler validates the snapshot and seeds machine occupancy.
// Each machine starts at its next shift start: today's if `now` has not
// reached it yet, otherwise tomorrow's. Machines are held in machine_id
// order, which doubles as the deterministic tie-break when several machines
// become available at the same instant.
func NewProductionScheduler(input ScheduleInput, now time.Time) (*ProductionScheduler, error) {
	machines := make([]*machineState, 0, len(input.Equipment))
	for _, eq := range input.Equipment {
		if eq.Status != models.EquipmentStatusActive {
			continue
		}
		shift, err := parseShiftWindow(eq.ShiftStart, eq.ShiftEnd)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("machine %s has an invalid shift window", eq.MachineID))
		}
		if eq.CapacityPerHour <= 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("machine %s has non-positive hourly capacity", eq.MachineID))
		}

		start := shift.startOn(now)
		if now.After(start) {
			start = shift.startOn(now.AddDate(0, 0, 1))
		}

		machines = append(machines, &machineState{
			machineID:       eq.MachineID,
			tonnage:         eq.Tonnage,
			capacityPerHour: eq.CapacityPerHour,
			shift:           shift,
			nextAvailable:   start,
		})
	}
	if len(machines) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoActiveEquipment, "")
	}
	sort.Slice(machines, func(i, j int) bool {
		return machines[i].machineID < machines[j].machineID
	})

	products := make(map[string]models.Product, len(input.Products))
	for _, p := range input.Products {
		products[p.ProductCode] = p
	}

	return &ProductionScheduler{
		machines: machines,
		products: products,
		orders:   prioritizeOrders(input.Orders),
		now:      now,
	}, nil
}

// prioritizeOrders returns a stable-sorted copy of the backlog: lower
// priority tier first, then earlier due date, then urgent before regular.
func prioritizeOrders(orders []models.Order) []models.Order {
	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.IsUrgent && !b.IsUrgent
	})
	return sorted
}

// Run executes the greedy pass: one iteration per order, no backtracking.
// Orders without an eligible machine are skipped, not failed.
func (s *ProductionScheduler) Run() ScheduleRun {
	run := ScheduleRun{
		ScheduleID:  fmt.Sprintf("SCHEDULE-%s", s.now.Format("20060102-150405")),
		GeneratedAt: s.now,
	}

	for _, order := range s.orders {
		product, hasProduct := s.products[order.ProductCode]

		machine := s.selectMachine(order, product, hasProduct)
		if machine == nil {
			run.SkippedOrders = append(run.SkippedOrders, order.OrderNumber)
			continue
		}

		start := machine.nextAvailable
		duration := estimateDurationMinutes(order, machine, product, hasProduct)
		rawEnd := start.Add(time.Duration(duration) * time.Minute)
		end := adjustForShiftWindow(start, rawEnd, machine.shift)

		run.Jobs = append(run.Jobs, ScheduledJob{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			ProductCode:     order.ProductCode,
			MachineID:       machine.machineID,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: duration,
			IsOnTime:        !end.After(dueBoundary(order.DueDate, s.now.Location())),
			DueDate:         order.DueDate,
			Quantity:        order.Quantity,
		})
		machine.nextAvailable = end
	}

	run.Metrics = summarizeRun(run.Jobs, len(s.machines))
	return run
}

// selectMachine returns the eligible machine with the earliest availability,
// or nil when no machine can produce the order's product. Ties resolve to
// the lowest machine_id because machines are kept in that order.
func (s *ProductionScheduler) selectMachine(order models.Order, product models.Product, hasProduct bool) *machineState {
	var best *machineState
	for _, m := range s.machines {
		if hasProduct && product.RequiredTonnage != nil && m.tonnage < *product.RequiredTonnage {
			continue
		}
		if best == nil || m.nextAvailable.Before(best.nextAvailable) {
			best = m
		}
	}
	return best
}

// estimateDurationMinutes computes the work duration for an order on a
// machine. The cycle-time model is preferred; when product master data is
// missing the machine's hourly throughput serves as fallback. Both paths add
// the fixed setup allowance and never return less than one production minute.
func estimateDurationMinutes(order models.Order, machine *machineState, product models.Product, hasProduct bool) int {
	var productionMinutes int
	if hasProduct && product.CycleTimeSeconds != nil && *product.CycleTimeSeconds > 0 {
		cavities := product.CavityCount
		if cavities < 1 {
			cavities = 1
		}
		cycles := float64(order.Quantity) / float64(cavities)
		productionMinutes = int(cycles * *product.CycleTimeSeconds / 60)
	} else {
		workHours := float64(order.Quantity) / float64(machine.capacityPerHour)
		productionMinutes = int(workHours * 60)
	}
	if productionMinutes < 1 {
		productionMinutes = 1
	}
	return productionMinutes + setupMinutes
}

// adjustForShiftWindow carries work past the machine's shift end into the
// following day's shift start, rolling across as many days as the overflow
// requires. The carry is computed against absolute boundaries instead of
// time-of-day, so jobs spilling past midnight still roll correctly.
func adjustForShiftWindow(start, rawEnd time.Time, shift shiftWindow) time.Time {
	end := rawEnd
	day := start
	for {
		boundary := shift.endOn(day)
		if !end.After(boundary) {
			return end
		}
		overflow := end.Sub(boundary)
		day = day.AddDate(0, 0, 1)
		end = shift.startOn(day).Add(overflow)
	}
}

// dueBoundary interprets a due date as a hard deadline at that date's
// start of day, matching the on-time comparison the product reports on.
func dueBoundary(due time.Time, loc *time.Location) time.Time {
	return time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, loc)
}

// summarizeRun recomputes metrics from scratch over the produced entries.
func summarizeRun(jobs []ScheduledJob, machineCount int) RunMetrics {
	if len(jobs) == 0 {
		return RunMetrics{}
	}

	onTime := 0
	totalMinutes := 0
	for _, job := range jobs {
		if job.IsOnTime {
			onTime++
		}
		totalMinutes += job.DurationMinutes
	}

	availableMinutes := machineCount * utilizationShiftHours * 60
	utilization := 0.0
	if availableMinutes > 0 {
		utilization = float64(totalMinutes) / float64(availableMinutes) * 100
	}
	if utilization > 100 {
		utilization = 100
	}

	return RunMetrics{
		OnTimeRate:   round2(float64(onTime) / float64(len(jobs)) * 100),
		Utilization:  round2(utilization),
		TotalOrders:  len(jobs),
		OnTimeOrders: onTime,
		LateOrders:   len(jobs) - onTime,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseShiftWindow parses "HH:MM" shift bounds, applying the shop defaults
// when either side is blank.
func parseShiftWindow(start, end string) (shiftWindow, error) {
	if strings.TrimSpace(start) == "" {
		start = defaultShiftStart
	}
	if strings.TrimSpace(end) == "" {
		end = defaultShiftEnd
	}
	startMin, err := parseClock(start)
	if err != nil {
		return shiftWindow{}, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return shiftWindow{}, err
	}
	if endMin <= startMin {
		return shiftWindow{}, fmt.Errorf("shift end %s must come after shift start %s", end, start)
	}
	return shiftWindow{start: startMin, end: endMin}, nil
}

func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour*60 + minute, nil
}

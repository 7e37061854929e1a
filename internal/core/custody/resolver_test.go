package custody

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/devicemanager/api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubDevices struct {
	byID map[int64]*domain.Device
}

func (r *stubDevices) Create(_ context.Context, d *domain.Device) (*domain.Device, error) {
	clone := *d
	r.byID[d.ID] = &clone
	return &clone, nil
}

func (r *stubDevices) FindByID(_ context.Context, id int64) (*domain.Device, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrDeviceNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *stubDevices) FindByIDs(ctx context.Context, ids []int64) ([]*domain.Device, error) {
	out := []*domain.Device{}
	for _, id := range ids {
		if d, err := r.FindByID(ctx, id); err == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubDevices) List(context.Context) ([]*domain.Device, error) { return nil, nil }
func (r *stubDevices) Update(context.Context, *domain.Device) error   { return nil }
func (r *stubDevices) Delete(context.Context, int64) error            { return nil }
func (r *stubDevices) FindTypeByName(context.Context, string) (*domain.DeviceType, error) {
	return nil, domain.ErrDeviceTypeNotFound
}

type stubEmployees struct {
	byID map[int64]*domain.Employee
}

func (r *stubEmployees) FindByID(_ context.Context, id int64) (*domain.Employee, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrEmployeeNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *stubEmployees) List(context.Context) ([]*domain.Employee, error) { return nil, nil }

type stubAssignments struct {
	rows []domain.DeviceAssignment
	err  error
}

func (r *stubAssignments) ListByDevice(_ context.Context, deviceID int64) ([]domain.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.DeviceAssignment
	for _, row := range r.rows {
		if row.DeviceID == deviceID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *stubAssignments) ListByEmployee(_ context.Context, employeeID int64) ([]domain.DeviceAssignment, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.DeviceAssignment
	for _, row := range r.rows {
		if row.EmployeeID == employeeID {
			out = append(out, row)
		}
	}
	return out, nil
}

func employee(id int64, first, last string) *domain.Employee {
	return &domain.Employee{ID: id, Person: domain.Person{FirstName: first, LastName: last}}
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 9, 0, 0, 0, time.UTC)
}

// D5 went to E1 on day 1 and to E2 on day 10.
func newScenario(blob string) (*Resolver, *stubAssignments) {
	assignments := &stubAssignments{rows: []domain.DeviceAssignment{
		{ID: 1, DeviceID: 5, EmployeeID: 1, IssueDate: day(1)},
		{ID: 2, DeviceID: 5, EmployeeID: 2, IssueDate: day(10)},
		{ID: 3, DeviceID: 7, EmployeeID: 1, IssueDate: day(3)},
	}}
	devices := &stubDevices{byID: map[int64]*domain.Device{
		5: {ID: 5, Name: "Laptop", Properties: blob},
		7: {ID: 7, Name: "Phone", Properties: `{"imei":"1234"}`},
		9: {ID: 9, Name: "Spare", Properties: `{"os":"linux"}`},
	}}
	employees := &stubEmployees{byID: map[int64]*domain.Employee{
		1: employee(1, "Ada", "Lovelace"),
		2: employee(2, "Alan", "Turing"),
	}}
	return NewResolver(devices, employees, assignments, zerolog.Nop()), assignments
}

func decode(t *testing.T, blob string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(blob), &out); err != nil {
		t.Fatalf("blob %q is not a JSON object: %v", blob, err)
	}
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestResolver_ResolveCurrent_LatestIssueDateWins(t *testing.T) {
	r, _ := newScenario(`{"ram":"16GB"}`)

	c, err := r.ResolveCurrent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ResolveCurrent returned error: %v", err)
	}
	if c == nil || c.ID != 2 || c.FirstName != "Alan" || c.LastName != "Turing" {
		t.Fatalf("expected E2 as custodian, got %+v", c)
	}
}

func TestResolver_ResolveDevice_MergesCustodian(t *testing.T) {
	r, _ := newScenario(`{"ram":"16GB","currentEmployee":{"id":1}}`)

	d, err := r.ResolveDevice(context.Background(), 5)
	if err != nil {
		t.Fatalf("ResolveDevice returned error: %v", err)
	}

	props := decode(t, d.Properties)
	if props["ram"] != "16GB" {
		t.Fatalf("existing keys must survive, got %v", props)
	}
	custodian, ok := props[domain.CustodianKey].(map[string]any)
	if !ok {
		t.Fatalf("expected %s object, got %v", domain.CustodianKey, props[domain.CustodianKey])
	}
	if custodian["id"] != float64(2) || custodian["firstName"] != "Alan" || custodian["lastName"] != "Turing" {
		t.Fatalf("unexpected custodian: %v", custodian)
	}
}

func TestResolver_ResolveDevice_NoHistoryLeavesBlob(t *testing.T) {
	r, _ := newScenario(`{}`)

	d, err := r.ResolveDevice(context.Background(), 9)
	if err != nil {
		t.Fatalf("ResolveDevice returned error: %v", err)
	}
	if d.Properties != `{"os":"linux"}` {
		t.Fatalf("blob must be untouched, got %s", d.Properties)
	}

	c, err := r.ResolveCurrent(context.Background(), 9)
	if err != nil || c != nil {
		t.Fatalf("expected no custodian, got %+v, %v", c, err)
	}
}

func TestResolver_ResolveDevice_MalformedBlob(t *testing.T) {
	for _, blob := range []string{"", "not json", "[1,2,3]", `"scalar"`, "null"} {
		r, _ := newScenario(blob)

		d, err := r.ResolveDevice(context.Background(), 5)
		if err != nil {
			t.Fatalf("blob %q: ResolveDevice returned error: %v", blob, err)
		}
		props := decode(t, d.Properties)
		if len(props) != 1 {
			t.Fatalf("blob %q: expected only the custodian key, got %v", blob, props)
		}
		if _, ok := props[domain.CustodianKey]; !ok {
			t.Fatalf("blob %q: custodian missing", blob)
		}
	}
}

func TestResolver_ResolveDevice_NotFound(t *testing.T) {
	r, _ := newScenario(`{}`)

	if _, err := r.ResolveDevice(context.Background(), 404); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestResolver_TieBreaksOnHighestID(t *testing.T) {
	r, assignments := newScenario(`{}`)
	assignments.rows = append(assignments.rows,
		domain.DeviceAssignment{ID: 11, DeviceID: 5, EmployeeID: 1, IssueDate: day(20)},
		domain.DeviceAssignment{ID: 10, DeviceID: 5, EmployeeID: 2, IssueDate: day(20)},
	)

	c, err := r.ResolveCurrent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ResolveCurrent returned error: %v", err)
	}
	if c == nil || c.ID != 1 {
		t.Fatalf("expected the row with the highest id (employee 1), got %+v", c)
	}
}

func TestResolver_MissingEmployeeIsUnassigned(t *testing.T) {
	r, assignments := newScenario(`{"a":1}`)
	assignments.rows = append(assignments.rows,
		domain.DeviceAssignment{ID: 99, DeviceID: 5, EmployeeID: 42, IssueDate: day(30)},
	)

	d, err := r.ResolveDevice(context.Background(), 5)
	if err != nil {
		t.Fatalf("ResolveDevice returned error: %v", err)
	}
	if d.Properties != `{"a":1}` {
		t.Fatalf("expected untouched blob, got %s", d.Properties)
	}
}

func TestResolver_StoreErrorPropagates(t *testing.T) {
	r, assignments := newScenario(`{}`)
	boom := errors.New("connection reset")
	assignments.err = boom

	if _, err := r.ResolveCurrent(context.Background(), 5); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if _, err := r.DevicesForEmployee(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestResolver_DevicesForEmployee_AllTime(t *testing.T) {
	r, assignments := newScenario(`{}`)
	// a repeat assignment of the same device must not duplicate it
	assignments.rows = append(assignments.rows,
		domain.DeviceAssignment{ID: 4, DeviceID: 7, EmployeeID: 1, IssueDate: day(4)},
	)

	ids, err := r.DevicesForEmployee(context.Background(), 1)
	if err != nil {
		t.Fatalf("DevicesForEmployee returned error: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{5, 7}) {
		t.Fatalf("expected [5 7] including the handed-over D5, got %v", ids)
	}

	ids, err = r.DevicesForEmployee(context.Background(), 3)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected no devices for E3, got %v, %v", ids, err)
	}
}

func TestResolver_DeviceForEmployee(t *testing.T) {
	r, _ := newScenario(`{}`)
	ctx := context.Background()

	d, ok, err := r.DeviceForEmployee(ctx, 1, 5)
	if err != nil || !ok || d.ID != 5 {
		t.Fatalf("E1 held D5 once and must still see it: %+v %v %v", d, ok, err)
	}

	if _, ok, err := r.DeviceForEmployee(ctx, 2, 7); err != nil || ok {
		t.Fatalf("E2 never held D7: ok=%v err=%v", ok, err)
	}

	delete(r.devices.(*stubDevices).byID, 7)
	if _, ok, err := r.DeviceForEmployee(ctx, 1, 7); err != nil || ok {
		t.Fatalf("a deleted device must not be reported: ok=%v err=%v", ok, err)
	}
}

func TestLatest(t *testing.T) {
	if latest, tied := Latest(nil); latest != nil || tied {
		t.Fatalf("empty history must yield nothing")
	}

	rows := []domain.DeviceAssignment{
		{ID: 3, IssueDate: day(5)},
		{ID: 1, IssueDate: day(5)},
		{ID: 2, IssueDate: day(2)},
	}
	latest, tied := Latest(rows)
	if latest.ID != 3 || !tied {
		t.Fatalf("expected id 3 with a tie, got %d tied=%v", latest.ID, tied)
	}

	rows = append(rows, domain.DeviceAssignment{ID: 0, IssueDate: day(6)})
	latest, tied = Latest(rows)
	if latest.ID != 0 || tied {
		t.Fatalf("a later date must win over a higher id, got %d tied=%v", latest.ID, tied)
	}
}

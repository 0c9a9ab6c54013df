package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/lazypower/rapport/internal/engine"
)

func createPerson(t *testing.T, srv http.Handler, label string, headers ...string) engine.Person {
	t.Helper()
	w := do(t, srv, "POST", "/api/people", fmt.Sprintf(`{"label":%q}`, label), headers...)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %s: status = %d; body: %s", label, w.Code, w.Body.String())
	}
	var p engine.Person
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode person: %v", err)
	}
	return p
}

func logInteraction(t *testing.T, srv http.Handler, personID, kind string, mood *int, daysAgo int) {
	t.Helper()
	at := time.Now().UTC().Add(-time.Duration(daysAgo) * 24 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"person_id":%q,"kind":%q,"happened_at":%q}`, personID, kind, at)
	if mood != nil {
		body = fmt.Sprintf(`{"person_id":%q,"kind":%q,"happened_at":%q,"mood":%d}`, personID, kind, at, *mood)
	}
	w := do(t, srv, "POST", "/api/interactions", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("log interaction: status = %d; body: %s", w.Code, w.Body.String())
	}
}

func intPtr(v int) *int { return &v }

func TestCreateAndListPeople(t *testing.T) {
	srv := testServer(t)

	createPerson(t, srv, "Bob")
	alice := createPerson(t, srv, "  Alice ")
	if alice.Label != "Alice" {
		t.Errorf("label = %q, want trimmed Alice", alice.Label)
	}

	w := do(t, srv, "GET", "/api/people", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count  int             `json:"count"`
		People []engine.Person `json:"people"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.People[0].Label != "Alice" || resp.People[1].Label != "Bob" {
		t.Errorf("order = %s, %s; want Alice, Bob", resp.People[0].Label, resp.People[1].Label)
	}
}

func TestCreatePersonValidation(t *testing.T) {
	srv := testServer(t)

	cases := []string{
		`{"note":"no label"}`,
		`{"label":"   "}`,
		`not json`,
	}
	for _, body := range cases {
		if w := do(t, srv, "POST", "/api/people", body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, w.Code)
		}
	}
}

func TestPeopleAreScopedByOwner(t *testing.T) {
	srv := testServer(t)

	createPerson(t, srv, "Alice")
	createPerson(t, srv, "Zed", "X-Rapport-User", "other")

	w := do(t, srv, "GET", "/api/people", "", "X-Rapport-User", "other")
	var resp struct {
		People []engine.Person `json:"people"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.People) != 1 || resp.People[0].Label != "Zed" {
		t.Errorf("other owner sees %+v, want only Zed", resp.People)
	}
}

func TestGetAndDeletePerson(t *testing.T) {
	srv := testServer(t)

	p := createPerson(t, srv, "Alice")
	logInteraction(t, srv, p.ID, "chat", nil, 1)

	w := do(t, srv, "GET", "/api/people/"+p.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}
	var detail struct {
		Person       engine.Person        `json:"person"`
		Interactions []engine.Interaction `json:"interactions"`
	}
	json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Person.ID != p.ID || len(detail.Interactions) != 1 {
		t.Errorf("detail = %+v", detail)
	}

	if w := do(t, srv, "DELETE", "/api/people/"+p.ID, ""); w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if w := do(t, srv, "GET", "/api/people/"+p.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", w.Code)
	}
	if w := do(t, srv, "DELETE", "/api/people/"+p.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}

func TestSetRoutine(t *testing.T) {
	srv := testServer(t)
	p := createPerson(t, srv, "Alice")

	if w := do(t, srv, "PUT", "/api/people/"+p.ID+"/routine", `{"days":7}`); w.Code != http.StatusOK {
		t.Fatalf("set: status = %d; body: %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, "PUT", "/api/people/"+p.ID+"/routine", `{"days":0}`); w.Code != http.StatusBadRequest {
		t.Errorf("days=0: status = %d, want 400", w.Code)
	}
	if w := do(t, srv, "PUT", "/api/people/missing/routine", `{"days":7}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown person: status = %d, want 404", w.Code)
	}
	if w := do(t, srv, "PUT", "/api/people/"+p.ID+"/routine", `{"days":null}`); w.Code != http.StatusOK {
		t.Errorf("clear: status = %d, want 200", w.Code)
	}
}

func TestAddInteractionValidation(t *testing.T) {
	srv := testServer(t)
	p := createPerson(t, srv, "Alice")

	cases := []struct {
		name string
		body string
		want int
	}{
		{"bad kind", fmt.Sprintf(`{"person_id":%q,"kind":"email"}`, p.ID), http.StatusBadRequest},
		{"mood too high", fmt.Sprintf(`{"person_id":%q,"kind":"chat","mood":4}`, p.ID), http.StatusBadRequest},
		{"mood too low", fmt.Sprintf(`{"person_id":%q,"kind":"chat","mood":-4}`, p.ID), http.StatusBadRequest},
		{"bad timestamp", fmt.Sprintf(`{"person_id":%q,"kind":"chat","happened_at":"yesterday"}`, p.ID), http.StatusBadRequest},
		{"missing person", `{"kind":"chat"}`, http.StatusBadRequest},
		{"unknown person", `{"person_id":"nope","kind":"chat"}`, http.StatusNotFound},
		{"ok without time", fmt.Sprintf(`{"person_id":%q,"kind":"call","mood":0}`, p.ID), http.StatusCreated},
	}
	for _, tc := range cases {
		if w := do(t, srv, "POST", "/api/interactions", tc.body); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d; body: %s", tc.name, w.Code, tc.want, w.Body.String())
		}
	}
}

func TestListInteractionsNewestFirst(t *testing.T) {
	srv := testServer(t)
	p := createPerson(t, srv, "Alice")
	logInteraction(t, srv, p.ID, "chat", nil, 10)
	logInteraction(t, srv, p.ID, "meet", intPtr(2), 1)
	logInteraction(t, srv, p.ID, "call", nil, 5)

	w := do(t, srv, "GET", "/api/interactions?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Interactions []engine.Interaction `json:"interactions"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Interactions) != 2 {
		t.Fatalf("got %d interactions, want 2", len(resp.Interactions))
	}
	if resp.Interactions[0].Kind != engine.KindMeet || resp.Interactions[1].Kind != engine.KindCall {
		t.Errorf("order = %s, %s; want meet, call", resp.Interactions[0].Kind, resp.Interactions[1].Kind)
	}
}

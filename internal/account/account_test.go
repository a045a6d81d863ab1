package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type fakeRepo struct {
	accounts map[string]Account
	updates  []ProfileUpdate
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, id string, u ProfileUpdate) (Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	f.updates = append(f.updates, u)
	info := a.Info()
	if u.Name != nil {
		info.Name = *u.Name
	}
	if u.Phone != nil {
		info.Phone = *u.Phone
	}
	if u.Skills != nil {
		info.Skills = *u.Skills
	}
	updated := FromIdentity(info, ProviderStats{})
	f.accounts[id] = updated
	return updated, nil
}

const providerID = "2f1c7c1e-7f4e-4a86-9d3c-0d3f5b9f2a11"

func newRepo() *fakeRepo {
	return &fakeRepo{accounts: map[string]Account{
		providerID: FromIdentity(Identity{
			ID: providerID, Name: "Sami", Email: "sami@example.com", PasswordHash: "hash",
			Role: RoleProvider, City: "Sfax", Phone: "22123456",
		}, ProviderStats{JobsCompleted: 3, Rating: 4.5, TotalEarnings: 300}),
	}}
}

func TestFromIdentityPicksVariant(t *testing.T) {
	cases := []struct {
		role Role
		want string
	}{
		{RoleCustomer, "account.Customer"},
		{RoleProvider, "account.Provider"},
		{RoleAdmin, "account.Admin"},
	}
	for _, tc := range cases {
		a := FromIdentity(Identity{Role: tc.role}, ProviderStats{JobsCompleted: 1})
		var got string
		switch a.(type) {
		case Customer:
			got = "account.Customer"
		case Provider:
			got = "account.Provider"
		case Admin:
			got = "account.Admin"
		}
		if got != tc.want {
			t.Fatalf("role %s built %s, want %s", tc.role, got, tc.want)
		}
	}
}

func TestAccountJSON(t *testing.T) {
	provider := FromIdentity(Identity{ID: "p1", Role: RoleProvider, PasswordHash: "secret"}, ProviderStats{JobsCompleted: 2, Rating: 4})
	customer := FromIdentity(Identity{ID: "c1", Role: RoleCustomer, PasswordHash: "secret"}, ProviderStats{JobsCompleted: 9})

	pb, _ := json.Marshal(provider)
	cb, _ := json.Marshal(customer)

	if strings.Contains(string(pb), "secret") || strings.Contains(string(cb), "secret") {
		t.Fatal("password hash leaked into JSON")
	}
	if !strings.Contains(string(pb), `"jobsCompleted":2`) {
		t.Fatalf("provider JSON missing stats: %s", pb)
	}
	if strings.Contains(string(cb), "jobsCompleted") {
		t.Fatalf("customer JSON carries provider stats: %s", cb)
	}
	if !strings.Contains(string(cb), `"skills":[]`) {
		t.Fatalf("expected empty skills array: %s", cb)
	}
}

func TestToPublicHidesContactDetails(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)

	profile, err := svc.Public(context.Background(), providerID)
	if err != nil {
		t.Fatalf("Public: %v", err)
	}
	if profile.Stats == nil || profile.Stats.Rating != 4.5 {
		t.Fatalf("expected provider stats in public profile, got %+v", profile.Stats)
	}
	b, _ := json.Marshal(profile)
	if strings.Contains(string(b), "sami@example.com") || strings.Contains(string(b), "22123456") {
		t.Fatalf("public profile leaked contact details: %s", b)
	}
}

func TestPublicRejectsMalformedID(t *testing.T) {
	svc := NewService(newRepo())
	_, err := svc.Public(context.Background(), "not-a-uuid")
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	empty := "  "
	badPhone := "1234"
	goodPhone := " 98765432 "

	cases := []struct {
		name    string
		update  ProfileUpdate
		wantErr apperr.Kind
		ok      bool
	}{
		{name: "blank name", update: ProfileUpdate{Name: &empty}, wantErr: apperr.KindBadRequest},
		{name: "blank city", update: ProfileUpdate{City: &empty}, wantErr: apperr.KindBadRequest},
		{name: "short phone", update: ProfileUpdate{Phone: &badPhone}, wantErr: apperr.KindBadRequest},
		{name: "trimmed phone", update: ProfileUpdate{Phone: &goodPhone}, ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(newRepo())
			a, err := svc.UpdateProfile(context.Background(), Principal{ID: providerID, Role: RoleProvider}, tc.update)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if a.Info().Phone != "98765432" {
					t.Fatalf("phone not trimmed: %q", a.Info().Phone)
				}
				return
			}
			if !apperr.Is(err, tc.wantErr) {
				t.Fatalf("expected %s, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestUpdateProfileDropsBlankSkills(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo)
	skills := []string{"plumbing", " ", " tiling "}

	a, err := svc.UpdateProfile(context.Background(), Principal{ID: providerID}, ProfileUpdate{Skills: &skills})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	got := a.Info().Skills
	if len(got) != 2 || got[0] != "plumbing" || got[1] != "tiling" {
		t.Fatalf("unexpected skills %v", got)
	}
}

func TestMeHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler
	h := NewHandler(NewService(newRepo()))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetPrincipal(c, Principal{ID: providerID, Role: RoleProvider})

	if err := h.Me(c); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["role"] != "provider" || body["rating"] != 4.5 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestMeHandlerWithoutPrincipal(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(newRepo()))
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/me", nil), httptest.NewRecorder())

	if err := h.Me(c); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToDTO(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := User{ID: 7, Name: "Jane", Email: "jane@example.com", Age: 30, CreatedAt: now}

	dto := ToDTO(user)

	if dto.ID != 7 || dto.Name != "Jane" || dto.Email != "jane@example.com" || dto.Age != 30 {
		t.Errorf("fields not mapped 1:1: %+v", dto)
	}
	if !dto.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt: expected %v, got %v", now, dto.CreatedAt)
	}
}

func TestToDTOs_EmptyIsNotNil(t *testing.T) {
	dtos := ToDTOs(nil)
	if dtos == nil {
		t.Fatal("expected non-nil slice")
	}

	data, _ := json.Marshal(dtos)
	if string(data) != "[]" {
		t.Errorf("expected [], got %s", string(data))
	}
}

func TestApplyInput_KeepsIdentityAndCreatedAt(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	user := User{ID: 1, Name: "Old", Email: "old@mail.com", Age: 20, CreatedAt: created}

	ApplyInput(&user, UserInput{Name: "Updated", Email: "new@mail.com", Age: 30})

	if user.ID != 1 {
		t.Errorf("ID changed to %d", user.ID)
	}
	if !user.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed to %v", user.CreatedAt)
	}
	if user.Name != "Updated" || user.Email != "new@mail.com" || user.Age != 30 {
		t.Errorf("fields not applied: %+v", user)
	}
}

func TestFromInput(t *testing.T) {
	user := FromInput(UserInput{Name: "Test", Email: "test@mail.com", Age: 22})

	if user.ID != 0 {
		t.Errorf("expected zero ID, got %d", user.ID)
	}
	if !user.CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt, got %v", user.CreatedAt)
	}
	if user.Name != "Test" || user.Email != "test@mail.com" || user.Age != 22 {
		t.Errorf("fields not mapped: %+v", user)
	}
}

func TestFromRequest(t *testing.T) {
	age := 0
	in := FromRequest(UserRequest{Name: "Test", Email: "test@mail.com", Age: &age})
	if in != (UserInput{Name: "Test", Email: "test@mail.com", Age: 0}) {
		t.Errorf("unexpected input: %+v", in)
	}

	in = FromRequest(UserRequest{Name: "Test", Email: "test@mail.com"})
	if in.Age != 0 {
		t.Errorf("expected zero age for missing field, got %d", in.Age)
	}
}

func TestUserRequest_NullAgeDecodesAsMissing(t *testing.T) {
	for body, wantNil := range map[string]bool{
		`{"age":null}`: true,
		`{}`:           true,
		`{"age":0}`:    false,
	} {
		var req UserRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if (req.Age == nil) != wantNil {
			t.Errorf("%s: age nil = %v, want %v", body, req.Age == nil, wantNil)
		}
	}
}

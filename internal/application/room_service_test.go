package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/monitor-scheduler/internal/persistence"
)

func TestRoomService_CreateRoom(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC)
	repo := &roomRepoStub{}
	svc := NewRoomService(repo, func() string { return "room-1" }, func() time.Time { return now })

	room, err := svc.CreateRoom(context.Background(), RoomInput{Name: "  Sala de cómputo 1 ", Location: "Bloque B", Capacity: 30})
	if err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}
	if room.ID != "room-1" || room.Name != "Sala de cómputo 1" {
		t.Fatalf("unexpected room %+v", room)
	}
	if !room.CreatedAt.Equal(now) || !room.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps from clock, got %+v", room)
	}
	if repo.created.ID != "room-1" {
		t.Fatalf("expected repository to receive the room")
	}
}

func TestRoomService_CreateRoomValidation(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(&roomRepoStub{}, nil, nil)

	_, err := svc.CreateRoom(context.Background(), RoomInput{Name: " ", Capacity: 0})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if vErr.FieldErrors["name"] == "" || vErr.FieldErrors["capacity"] == "" {
		t.Fatalf("expected name and capacity errors, got %v", vErr.FieldErrors)
	}
}

func TestRoomService_CreateRoomDuplicate(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(&roomRepoStub{createErr: persistence.ErrDuplicate}, nil, nil)

	if _, err := svc.CreateRoom(context.Background(), RoomInput{Name: "Sala 1", Capacity: 10}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestRoomService_ListRoomsSortsByName(t *testing.T) {
	t.Parallel()

	repo := &roomRepoStub{list: []Room{
		{ID: "r3", Name: "laboratorio"},
		{ID: "r2", Name: "Auditorio"},
		{ID: "r1", Name: "auditorio"},
	}}
	svc := NewRoomService(repo, nil, nil)

	rooms, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms returned error: %v", err)
	}
	got := []string{rooms[0].ID, rooms[1].ID, rooms[2].ID}
	want := []string{"r1", "r2", "r3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}

	names, err := svc.RoomNames(context.Background())
	if err != nil {
		t.Fatalf("RoomNames returned error: %v", err)
	}
	if names["r3"] != "laboratorio" {
		t.Fatalf("expected name index, got %v", names)
	}
}

func TestRoomService_GetRoomNotFound(t *testing.T) {
	t.Parallel()

	svc := NewRoomService(&roomRepoStub{}, nil, nil)
	if _, err := svc.GetRoom(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

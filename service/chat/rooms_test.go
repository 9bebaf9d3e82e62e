package chat

import "testing"

func TestRoomTableJoinIdempotent(t *testing.T) {
	rt := newRoomTable()
	c := testConn("c1", "alice")

	first, already := rt.join("trip-1", c)
	if !first || already {
		t.Fatalf("initial join: first=%v already=%v, want first=true already=false", first, already)
	}
	first, already = rt.join("trip-1", c)
	if first || !already {
		t.Fatalf("repeat join: first=%v already=%v, want first=false already=true", first, already)
	}
	if !rt.isJoined("trip-1", "c1") {
		t.Fatal("connection should be in the channel after join")
	}
}

func TestRoomTableLeave(t *testing.T) {
	rt := newRoomTable()
	c1 := testConn("c1", "alice")
	c2 := testConn("c2", "bob")
	rt.join("trip-1", c1)
	rt.join("trip-1", c2)

	if last, wasMember := rt.leave("trip-1", c1); last || !wasMember {
		t.Fatalf("leave with member remaining: last=%v wasMember=%v", last, wasMember)
	}
	if last, wasMember := rt.leave("trip-1", c1); last || wasMember {
		t.Fatalf("repeat leave: last=%v wasMember=%v, want both false", last, wasMember)
	}
	if last, wasMember := rt.leave("trip-1", c2); !last || !wasMember {
		t.Fatalf("final leave: last=%v wasMember=%v, want both true", last, wasMember)
	}
	if rt.isJoined("trip-1", "c2") {
		t.Fatal("connection should be gone after leave")
	}
}

func TestRoomTableLeaveAll(t *testing.T) {
	rt := newRoomTable()
	c := testConn("c1", "alice")
	other := testConn("c2", "bob")
	rt.join("trip-1", c)
	rt.join("trip-2", c)
	rt.join("trip-2", other)

	left := rt.leaveAll(c)
	if len(left) != 2 {
		t.Fatalf("leaveAll covered %d rooms, want 2", len(left))
	}
	if !left["trip-1"] {
		t.Fatal("trip-1 lost its only member, want last=true")
	}
	if left["trip-2"] {
		t.Fatal("trip-2 still has a member, want last=false")
	}
}

func TestRoomTableUserConns(t *testing.T) {
	rt := newRoomTable()
	a1 := testConn("c1", "alice")
	a2 := testConn("c2", "alice")
	b := testConn("c3", "bob")
	rt.join("trip-1", a1)
	rt.join("trip-1", a2)
	rt.join("trip-1", b)

	if n := rt.userConns("trip-1", "alice"); n != 2 {
		t.Fatalf("alice has %d conns in room, want 2", n)
	}
	rt.leave("trip-1", a1)
	if n := rt.userConns("trip-1", "alice"); n != 1 {
		t.Fatalf("alice has %d conns after one leave, want 1", n)
	}
	if n := rt.userConns("trip-1", "carol"); n != 0 {
		t.Fatalf("carol has %d conns, want 0", n)
	}
}

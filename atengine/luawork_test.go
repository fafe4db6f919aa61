package atengine

import "testing"

func TestSubmitLuaWorkRunsToCompletion(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	script := `
		if at.state() == 0 then
			at.printf("AT")
			at.set_state(1)
			return 0
		end
		if at.find("OK") then
			return 1
		end
		return 0
	`

	var got CommandResponse
	done := false
	_, err := e.SubmitLuaWork(nil, script, func(r CommandResponse) { got = r; done = true })
	if err != nil {
		t.Fatalf("SubmitLuaWork: %v", err)
	}

	if err := e.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if want := "AT\r\n"; tr.written() != want {
		t.Fatalf("written = %q, want %q", tr.written(), want)
	}

	tr.feed("\r\nOK\r\n")
	if err := e.Poll(); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if !done {
		t.Fatal("lua work never completed")
	}
	if got.Result != Ok {
		t.Fatalf("Result = %v, want Ok", got.Result)
	}
}

func TestSubmitLuaWorkCompileErrorReturned(t *testing.T) {
	tr := &fakeTransport{}
	clk := newFakeClock()
	e := newTestEngine(t, tr, clk)

	_, err := e.SubmitLuaWork(nil, "this is not ) valid lua (((", nil)
	if err == nil {
		t.Fatal("expected a compile error for malformed lua")
	}
}

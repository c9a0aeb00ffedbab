package wire

import "testing"

func TestMetadataTargetModule(t *testing.T) {
	cases := []struct {
		name       string
		md         Metadata
		wantTarget string
		wantModule string
	}{
		{
			name:       "module overrides target",
			md:         Metadata{Target: "myapp", Module: strPtr("myapp::render::frame")},
			wantTarget: "myapp",
			wantModule: "render::frame",
		},
		{
			name:       "no separator",
			md:         Metadata{Target: "myapp"},
			wantTarget: "myapp",
			wantModule: "",
		},
		{
			name:       "nil module falls back to target",
			md:         Metadata{Target: "myapp::core"},
			wantTarget: "myapp",
			wantModule: "core",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			target, module := c.md.TargetModule()
			if target != c.wantTarget || module != c.wantModule {
				t.Errorf("TargetModule() = (%q, %q), want (%q, %q)", target, module, c.wantTarget, c.wantModule)
			}
		})
	}
}

func TestValueSetWithAppended(t *testing.T) {
	child := ValueSet{{Key: "frame", Value: SignedValue(3)}}
	parent := []ValuePair{{Key: "render::width", Value: UnsignedValue(1920)}}

	got := child.WithAppended(parent...)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Key != "frame" {
		t.Errorf("got[0].Key = %q, want child value first", got[0].Key)
	}
	if got[1].Key != "render::width" {
		t.Errorf("got[1].Key = %q, want parent value last", got[1].Key)
	}

	// original slice is untouched
	if len(child) != 1 {
		t.Errorf("WithAppended mutated receiver: len(child) = %d, want 1", len(child))
	}
}

func TestValueSetWithAppendedNoOp(t *testing.T) {
	vs := ValueSet{{Key: "a", Value: BoolValue(true)}}
	got := vs.WithAppended()
	if len(got) != 1 || got[0].Key != "a" {
		t.Errorf("WithAppended() with no args changed the set: %+v", got)
	}
}

func TestValueSetRender(t *testing.T) {
	vs := ValueSet{
		{Key: "width", Value: UnsignedValue(1920)},
		{Key: "name", Value: StringValue("ok")},
	}
	want := `width = 1920,name = "ok"`
	if got := vs.Render(','); got != want {
		t.Errorf("Render(',') = %q, want %q", got, want)
	}
}

func TestValueString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{FloatValue(1.5), "1.5"},
		{SignedValue(-4), "-4"},
		{UnsignedValue(9), "9"},
		{StringValue(`has "quotes"`), `"has \"quotes\""`},
		{BoolValue(true), "true"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("Value.String() = %q, want %q", got, c.want)
		}
	}
}

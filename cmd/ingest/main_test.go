package main

import "testing"

func TestRunCommandBucketFlag(t *testing.T) {
	cmd := runCmd()

	flag := cmd.Flags().Lookup("bucket")
	if flag == nil {
		t.Fatal("bucket flag not registered")
	}
	if flag.DefValue != "" {
		t.Errorf("bucket must default to the configured value, got %q", flag.DefValue)
	}
}

// Package tbman supervises TensorBoard processes.
//
// tbman launches one TensorBoard process per user-declared configuration (a
// set of log directories plus a window title), each on its own TCP port with
// its own private merged log directory, and keeps the set of configurations
// in a session file so a later run can relaunch them.
//
// # Basic Usage
//
//	mgr, err := tbman.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Shutdown()
//
//	inst, err := mgr.Launch(tbman.Config{
//	    Paths: []string{"/data/experiments/run1"},
//	    Title: "run1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("serving on port %d\n", inst.Port)
//
// # Sessions
//
// New replays every configuration found in the session file, assigning fresh
// identifiers and ports. Save writes the current configurations back;
// Shutdown saves and then stops every instance. A given session file is held
// by at most one manager at a time, enforced with a sidecar lock file.
package tbman

// Package lib provides a Go SDK for managing gsx game server instances programmatically.
//
// This package allows applications to create, run and operate game server
// instances without shelling out to the gsx CLI binary. It shares the state
// database with the CLI, so instances created by one are visible to the other.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	inst, err := client.CreateInstance(ctx, lib.CreateInstanceOpts{
//	    Name:    "survival",
//	    Family:  lib.FamilyFabric,
//	    Version: "1.20.1",
//	    Memory:  lib.Memory{MinMB: 1024, MaxMB: 4096},
//	})
//
//	client.StartInstance(ctx, "survival")
//	client.SendCommand(ctx, "survival", "say hello")
//	client.StopInstance(ctx, "survival", nil)
//	client.RemoveInstance(ctx, "survival", false)
//
// # Engines
//
//   - [EngineDocker]: Docker containers running the boot sequence as entrypoint.
//     Requires access to a Docker daemon.
//   - [EngineFake]: In-memory simulation of a server that boots instantly. No real
//     infrastructure needed, set [Config].Engine to [EngineFake] to use it.
//
// # Status
//
// Instance status is observed on demand: reading an instance ([Client.GetInstance],
// [Client.ListInstances]) inspects its sandbox and persists the resulting status,
// so a server that crashed is reported as [InstanceStatusCrashed] on the next read.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Instance does not exist.
//   - [ErrAlreadyExists]: Instance with the same name or host port already exists.
//   - [ErrNotValid]: Invalid input or operation (e.g. stopping a stopped instance).
//
// # Testing
//
// Use [EngineFake] and a temporary database path to write tests without
// real infrastructure:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath: filepath.Join(t.TempDir(), "test.db"),
//	    Engine: lib.EngineFake,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The underlying
// storage uses SQLite with WAL mode.
package lib

package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default gsx data directory name (relative to home).
	DefaultDataDir = ".gsx"
	// DBFile is the state database filename inside the data directory.
	DBFile = "gsx.db"
	// InstancesDir is the subdirectory for instance data.
	InstancesDir = "instances"
	// InstanceWorkDir is the instance subdirectory bind mounted into the sandbox.
	InstanceWorkDir = "data"

	// SandboxDataDir is where the instance data is mounted inside the sandbox.
	SandboxDataDir = "/data"
	// SandboxBootBinary is where the bootstrap binary is mounted inside the sandbox.
	SandboxBootBinary = "/usr/local/bin/gsboot"
	// ServerPort is the game server port inside the sandbox.
	ServerPort = 25565
	// FirstHostPort is the first host port handed out when none is requested.
	FirstHostPort = 25565

	// ContainerPrefix prefixes the sandbox container names.
	ContainerPrefix = "gsx-"
	// ManagedByLabel marks the containers owned by gsx.
	ManagedByLabel = "io.gsx.managed-by"
	// InstanceIDLabel has the instance ID of a container.
	InstanceIDLabel = "io.gsx.instance-id"
	// InstanceNameLabel has the instance name of a container.
	InstanceNameLabel = "io.gsx.instance-name"
	// FamilyLabel has the server family of a container.
	FamilyLabel = "io.gsx.family"
)

// DBPath returns the state database path of a data directory.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}

// InstanceDir returns the directory for a specific instance.
func InstanceDir(dataDir, instanceID string) string {
	return filepath.Join(dataDir, InstancesDir, instanceID)
}

// InstanceDataDir returns the instance server files directory, the one mounted in the sandbox.
func InstanceDataDir(dataDir, instanceID string) string {
	return filepath.Join(InstanceDir(dataDir, instanceID), InstanceWorkDir)
}

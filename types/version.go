package types

// Version is the canonical project version. All components (CLI, display
// snapshot wire format, IPC framing) share this version per the lockstep
// versioning policy.
const Version = "0.1.0"

// ContractVersion is the version of the display-snapshot / RuntimeCommand
// wire contract. Bumped independently of Version only when the wire shape
// changes in a way a UI consumer must know about.
const ContractVersion = "0.1.0"

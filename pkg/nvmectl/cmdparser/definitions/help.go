package definitions

type helpMessage struct {
	Short string
	Long  string
}

// CmdHelpMessages [CmdName]
var CmdHelpMessages = map[string]helpMessage{
	"nvmectl": {
		Short: "Nvmectl talks to NVMe controllers through the kernel admin passthrough.",
		Long: "Nvmectl reads SMART and identify data straight from NVMe controllers,\n" +
			"sends raw admin commands and runs destructive namespace lifecycle tests.",
	},
	"device": {
		Short: "Inspect the attached NVMe controllers.",
		Long:  "Inspect the attached NVMe controllers.",
	},
	"run": {
		Short: "Run the namespace lifecycle test against one controller.",
		Long: "Run deletes and re-creates a namespace, formats it, drives a random read/write\n" +
			"workload and validates the SMART counters and namespace geometry afterwards.\n" +
			"ALL DATA ON THE NAMESPACE IS DESTROYED.",
	},
}

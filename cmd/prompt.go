package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"smtpc/config"
	"smtpc/internal/console"
)

const banner = `
  (       *            (             (     (            )
  )\ )  (  ` + "`" + `     *   ) )\ )     (    )\ )  )\ )      ( /(   *   )
 (()/(  )\))(  ` + "`" + ` )  /((()/(     )\  (()/( (()/( (    )\())` + "`" + ` )  /(
  /(_))((_)()\  ( )(_))/(_))  (((_)  /(_)) /(_)))\  ((_)\  ( )(_))
 (_))  (_()((_)(_(_())(_))    )\___ (_))  (_)) ((_)  _((_)(_(_())
 / __| |  \/  ||_   _|| _ \  ((/ __|| |   |_ _|| __|| \| ||_   _|
 \__ \ | |\/| |  | |  |  _/   | (__ | |__  | | | _| | .` + "`" + ` |  | |
 |___/ |_|  |_|  |_|  |_|      \___||____||___||___||_|\_|  |_|
`

func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// promptPort asks for the server port until a valid one is entered.
// An empty answer keeps def.
func promptPort(con *console.Console, def int) (int, error) {
	for {
		line, err := con.PromptLine(fmt.Sprintf("Please Enter Port Number (default %d): ", def))
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return def, nil
		}
		if _, err := strconv.Atoi(line); err != nil {
			con.Reportf("%q is not valid Port Number.\nPort must be a number!", line)
			continue
		}
		port, err := config.ParsePort(line)
		if err != nil {
			con.Reportf("Port number must be between %d and %d", config.MinPort, config.MaxPort)
			continue
		}
		return port, nil
	}
}

// promptVerbose asks whether failures should be echoed to the console.
// Anything but y or n keeps it on.
func promptVerbose(con *console.Console) (bool, error) {
	line, err := con.PromptLine("\nDo you want messages to be verbose? (y or n, default = y): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "n":
		con.Report("Verbose is disabled.")
		return false, nil
	case "y", "":
		con.Report("Verbose is enabled.")
		return true, nil
	default:
		con.Report("\nSorry, Wrong answer, Verbose is enabled.")
		return true, nil
	}
}

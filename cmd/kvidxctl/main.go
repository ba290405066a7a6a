// Command kvidxctl inspects and manipulates kvidxkit stores from the shell.
package main

import (
	_ "github.com/mattsta/kvidxkit/adapter/badgerkv"
	_ "github.com/mattsta/kvidxkit/adapter/boltkv"
	_ "github.com/mattsta/kvidxkit/adapter/memkv"
	_ "github.com/mattsta/kvidxkit/adapter/sqlitekv"
)

func main() {
	execute()
}

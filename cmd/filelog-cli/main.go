package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/0xRadioAc7iv/go-filelog/filelog"
	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/utils"
)

const commandSummary = `Commands:
  create <log>                 create an empty log
  nextid <log>                 identifier the next entry will receive
  append <log> <payload>       append an entry, prints its identifier
  get <log> <id>               print the payload of an entry
  put <log> <id> <payload>     append only if the entry would get <id>
  list                         list logs
  ping | help | exit

Quote payloads that contain spaces: append orders "hello world"`

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-host HOST] [-port PORT]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\n%s\n", commandSummary)
	}

	host := flag.String("host", config.DEFAULT_HOST, "filelog server host")
	port := flag.Int("port", config.DEFAULT_PORT, "filelog server port")
	flag.Parse()

	client, err := filelog.Connect(filelog.WithHost(*host), filelog.WithPort(*port))
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	fmt.Printf("Connected to %v:%d\n", *host, *port)
	fmt.Println(commandSummary)

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("input error:", err)
			return
		}

		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if line == "exit" {
			return
		}

		cmd, args, err := utils.SplitStringIntoCommandAndArguments(line)
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}

		resp, err := client.Execute(cmd, args)
		if err != nil {
			fmt.Println(err)
			continue
		}

		fmt.Println(resp)
	}
}

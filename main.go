// Package main provides the taglink command: it writes URLs to NTAG216 tags
// as NDEF URI records, one-shot from the command line, in batch from a
// contacts CSV, or as a long-running agent with an HTTP/WebSocket API.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dotside-studios/taglink/buildinfo"
	"github.com/dotside-studios/taglink/nfc"
	"github.com/dotside-studios/taglink/server"
	"github.com/dotside-studios/taglink/vcard"
)

var (
	// CLI flags
	defaultPort = 18080
	urlFlag     string
	csvFlag     string
	baseURLFlag string
	serveFlag   bool
	portFlag    int
	readerFlag  string
	libnfcFlag  bool
	verboseFlag bool
	versionFlag bool
)

// newTransport picks the card transport. PC/SC is the default; -libnfc
// switches to a direct libnfc device. The returned cleanup releases
// transport resources and must run before exit.
func newTransport() (nfc.Transport, func(), error) {
	if libnfcFlag {
		return nfc.NewLibnfcTransport(), func() {}, nil
	}

	transport, err := nfc.NewPCSCTransport()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := transport.Release(); err != nil {
			log.Warn().Err(err).Msg("error releasing PC/SC context")
		}
	}
	return transport, cleanup, nil
}

// writeBatch writes one tag per CSV row, prompting between tags.
func writeBatch(writer *nfc.Writer, path, baseURL string) error {
	contacts, err := vcard.LoadCSV(path)
	if err != nil {
		return err
	}
	log.Info().Int("contacts", len(contacts)).Str("file", path).Msg("contacts loaded")

	for i, contact := range contacts {
		url := contact.URL(baseURL)
		fmt.Printf("[%d/%d] %s %s\n", i+1, len(contacts), contact.FirstName, contact.LastName)
		fmt.Println("Present a tag to write, then remove it...")

		if err := writer.WriteURL(url); err != nil {
			return fmt.Errorf("contact %d (%s %s): %w", i+1, contact.FirstName, contact.LastName, err)
		}
		fmt.Println("Written.")
	}
	return nil
}

func serve(writer *nfc.Writer) error {
	srv := server.New(server.Config{
		Writer: writer,
		Port:   portFlag,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutdown signal received, stopping server...")
		srv.Stop()
	}()

	return srv.Start()
}

func main() {
	flag.StringVar(&urlFlag, "url", "", "URL to write to a tag")
	flag.StringVar(&csvFlag, "csv", "", "Contacts CSV file for batch writing")
	flag.StringVar(&baseURLFlag, "base-url", "", "vCard page base URL for batch writing")
	flag.BoolVar(&serveFlag, "serve", false, "Run as an agent with an HTTP/WebSocket API")
	flag.IntVar(&portFlag, "port", defaultPort, "Port for the agent API")
	flag.StringVar(&readerFlag, "reader", "", "Reader name pattern (default: ACR1252)")
	flag.BoolVar(&libnfcFlag, "libnfc", false, "Use a libnfc device instead of PC/SC")
	flag.BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	flag.BoolVar(&versionFlag, "version", false, "Print version information and exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verboseFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if versionFlag {
		fmt.Println(buildinfo.BuildInfo())
		return
	}

	if urlFlag == "" && csvFlag == "" && !serveFlag {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -url, -csv or -serve")
		flag.Usage()
		os.Exit(2)
	}
	if csvFlag != "" && baseURLFlag == "" {
		fmt.Fprintln(os.Stderr, "-csv requires -base-url")
		os.Exit(2)
	}

	transport, cleanup, err := newTransport()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize card transport")
	}
	defer cleanup()

	writer := nfc.NewWriter(transport, readerFlag)

	switch {
	case serveFlag:
		err = serve(writer)
	case csvFlag != "":
		err = writeBatch(writer, csvFlag, baseURLFlag)
	default:
		err = writer.WriteURL(urlFlag)
		if err == nil {
			fmt.Println("URL written:", urlFlag)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("write failed")
	}
}

package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	slist "github.com/sagernet/sing-slist"
	E "github.com/sagernet/sing-slist/common/exceptions"
	"github.com/sagernet/sing-slist/common/header"
	"github.com/sagernet/sing-slist/common/log"
	"github.com/sagernet/sing-slist/protocol/curl"
	S "github.com/sagernet/sing-slist/protocol/curl/slist"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	err := MainCmd().Execute()
	if err != nil {
		logrus.Fatal(err)
	}
}

type Flags struct {
	Headers    []string `json:"headers"`
	Method     string   `json:"method"`
	Data       string   `json:"data"`
	Retain     bool     `json:"retain"`
	Timeout    string   `json:"timeout"`
	MaxHeaders int      `json:"max_headers"`
	Verbose    bool     `json:"verbose"`
	ConfigFile string   `json:"-"`
}

func MainCmd() *cobra.Command {
	flags := new(Flags)

	cmd := &cobra.Command{
		Use:     "slist-get [flags] URL",
		Short:   "perform one HTTP transfer with a scoped header list",
		Version: slist.Version,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, flags, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&flags.Headers, "header", "H", nil, `Pass a custom header to the server.

"Key: Value" sets the header, "Key:" removes a default header and
"Key;" sends the header with an empty value.`)
	cmd.Flags().StringVarP(&flags.Method, "request", "X", "", "Set the request method.")
	cmd.Flags().StringVarP(&flags.Data, "data", "d", "", "Send data in a POST request.")
	cmd.Flags().BoolVar(&flags.Retain, "retain", false, "Let the list library keep pointers to the header strings instead of copying them.")
	cmd.Flags().StringVar(&flags.Timeout, "timeout", "", "Set the transfer timeout, e.g. 10s.")
	cmd.Flags().IntVar(&flags.MaxHeaders, "max-headers", 0, "Limit the number of header lines.")
	cmd.Flags().StringVarP(&flags.ConfigFile, "config", "c", "", "Use a configuration file.")
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose mode.")

	return cmd
}

// LoadConfig fills the flags left unset from the configuration file.
func LoadConfig(flags *Flags) error {
	if flags.ConfigFile == "" {
		return nil
	}
	content, err := os.ReadFile(flags.ConfigFile)
	if err != nil {
		return E.Cause(err, "read config file")
	}
	flagsNew := new(Flags)
	err = json.Unmarshal(content, flagsNew)
	if err != nil {
		return E.Cause(err, "decode config file")
	}
	flags.Headers = append(flagsNew.Headers, flags.Headers...)
	if flagsNew.Method != "" && flags.Method == "" {
		flags.Method = flagsNew.Method
	}
	if flagsNew.Data != "" && flags.Data == "" {
		flags.Data = flagsNew.Data
	}
	if flagsNew.Timeout != "" && flags.Timeout == "" {
		flags.Timeout = flagsNew.Timeout
	}
	if flagsNew.MaxHeaders != 0 && flags.MaxHeaders == 0 {
		flags.MaxHeaders = flagsNew.MaxHeaders
	}
	if flagsNew.Retain {
		flags.Retain = true
	}
	if flagsNew.Verbose {
		flags.Verbose = true
	}
	return nil
}

func NewRequest(flags *Flags, url string) (curl.Request, error) {
	entries, err := header.ParseAll(flags.Headers)
	if err != nil {
		return curl.Request{}, err
	}
	request := curl.Request{
		Method:  flags.Method,
		URL:     url,
		Headers: entries,
	}
	if flags.Data != "" {
		request.Body = []byte(flags.Data)
	}
	return request, nil
}

func NewEasy(flags *Flags) (*curl.Easy, error) {
	options := curl.Options{
		MaxHeaders: flags.MaxHeaders,
	}
	if flags.Timeout != "" {
		timeout, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return nil, E.Cause(err, "parse timeout")
		}
		options.Timeout = timeout
	}
	mode := S.Copy
	if flags.Retain {
		mode = S.Retain
	}
	options.Library = S.New(S.Options{Mode: mode})
	return curl.NewEasy(options), nil
}

func Run(cmd *cobra.Command, flags *Flags, url string) error {
	err := LoadConfig(flags)
	if err != nil {
		return err
	}
	log.SetVerbose(flags.Verbose)

	request, err := NewRequest(flags, url)
	if err != nil {
		return err
	}
	easy, err := NewEasy(flags)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logrus.Debug("perform ", request.URL, " with ", len(request.Headers), " headers")
	response, err := easy.Perform(ctx, request)
	if err != nil {
		return err
	}
	logrus.Info(response.Status)
	_, err = cmd.OutOrStdout().Write(response.Body)
	return err
}

package cli

import (
	"errors"
	"strings"

	"github.com/kolah/speclens/internal/executor"
	"github.com/kolah/speclens/internal/model"
	"github.com/kolah/speclens/internal/workspace"
	"github.com/spf13/cobra"
)

func newTryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "try <spec> <method> <path>",
		Short: "Load a spec into the workspace and send one request",
		Long: `Load a spec into the workspace and send one request.

The stored credentials, variables and cookies of the workspace are applied
and the exchange is added to the history. Path parameters that are not
given fall back to their generated examples.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			info, err := loadIntoWorkspace(ctx, sess.ws, args[0])
			if err != nil {
				return err
			}
			for _, w := range info.Warnings {
				a.errOut.Warning(w)
			}

			method := model.Method(strings.ToUpper(args[1]))
			d, err := sess.ws.Describe(method, args[2])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			baseURL, _ := flags.GetString("base-url")
			pathParams, _ := flags.GetStringToString("path-param")
			query, _ := flags.GetStringToString("query")
			headers, _ := flags.GetStringToString("header")
			body, _ := flags.GetString("body")
			save, _ := flags.GetBool("save")
			showHeaders, _ := flags.GetBool("show-headers")

			if pathParams == nil {
				pathParams = map[string]string{}
			}
			defaults := exampleInput(d)
			for name, value := range defaults.PathParams {
				if _, ok := pathParams[name]; !ok {
					pathParams[name] = value
				}
			}

			exec, err := sess.ws.Execute(ctx, workspace.ExecuteInput{
				Input: executor.Input{
					Method:      string(method),
					Path:        d.Path,
					BaseURL:     baseURL,
					PathParams:  pathParams,
					QueryParams: query,
					Headers:     headers,
					Body:        body,
				},
				SaveTestData: save,
			})
			if err != nil {
				return err
			}
			if exec.Error != nil {
				return errors.New(exec.Error.Message)
			}

			a.out.Response(exec.Response, showHeaders)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("base-url", "", "Server URL (default: first server of the spec)")
	flags.StringToString("path-param", nil, "Path parameter name=value")
	flags.StringToString("query", nil, "Query parameter name=value")
	flags.StringToString("header", nil, "Header name=value")
	flags.String("body", "", "Request body, JSON or raw text")
	flags.Bool("save", false, "Save the values and response as test data")
	flags.BoolP("show-headers", "i", false, "Print response headers")

	return cmd
}

package cmd

import (
	"flag"

	"github.com/etnz/tradeledger/config"
	"github.com/etnz/tradeledger/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of the tl command line, built from
// the flags of every subcommand.
func Completion() *complete.Command {
	markets := predict.Set{}
	for _, m := range config.Default().Markets {
		markets = append(markets, m.Code)
	}
	topics, _ := docs.GetAllTopics()

	args := map[string]complete.Predictor{
		"import":  predict.Or(predict.Files("*.csv"), predict.Files("*.tsv"), predict.Files("*.txt")),
		"restore": predict.Files("*.json"),
		"topic":   predict.Set(topics),
	}

	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagPredictors(flag.CommandLine, markets),
	}
	for _, g := range groups() {
		for _, c := range g.commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			sub := &complete.Command{Flags: flagPredictors(fs, markets), Args: args[c.Name()]}
			root.Sub[c.Name()] = sub
		}
	}
	return root
}

func flagPredictors(fs *flag.FlagSet, markets predict.Set) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		switch f.Name {
		case "m":
			flags[f.Name] = markets
		case "side":
			flags[f.Name] = predict.Set{"BUY", "SELL"}
		case "config":
			flags[f.Name] = predict.Files("*.yaml")
		case "o":
			flags[f.Name] = predict.Files("*")
		default:
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

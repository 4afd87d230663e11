package bpapp

import (
	appbase "github.com/borderless-technologies/borderless-cli/app/base"
	_ "github.com/borderless-technologies/borderless-cli/app/deploy"
	_ "github.com/borderless-technologies/borderless-cli/app/init"
	_ "github.com/borderless-technologies/borderless-cli/app/link"
	_ "github.com/borderless-technologies/borderless-cli/app/merge"
	_ "github.com/borderless-technologies/borderless-cli/app/pack"
	_ "github.com/borderless-technologies/borderless-cli/app/publish"
	_ "github.com/borderless-technologies/borderless-cli/app/template"
)

var App = appbase.App

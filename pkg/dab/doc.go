/*
	Package dab -- short for Data Access Broker -- contains functions that help save and load data,
	mostly to a local filesystem.

	Most dab functions return objects from the bpapi package.
	Functions that deal with the filesystem may expect to be dealing with a
	project directory (conmingled with other user files); search features are
	provided for those, since there is no other index of project contents
	aside from the filesystem itself.

	Most of these functions return the "latest" version of their relevant API type.
	At the moment, that's not saying much, because we haven't grown in such a way
	that we support major variations of API object revisions -- but in the future,
	this means these functions may do "migrational" transforms to the data on the fly.
*/
package dab

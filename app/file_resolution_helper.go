package app

import "github.com/ludo-technologies/finscn/domain"

// ResolveMethodFiles turns input paths into method files. Paths that already
// name existing method files are returned as given; otherwise the reader
// collects files from the paths using the include and exclude patterns.
//
// With validateExtension set, a path without a method file extension forces
// collection even when it exists.
func ResolveMethodFiles(
	fileReader domain.MethodFileReader,
	paths []string,
	recursive bool,
	includePatterns []string,
	excludePatterns []string,
	validateExtension bool,
) ([]string, error) {
	allFiles := true
	for _, path := range paths {
		if validateExtension && !fileReader.IsMethodFile(path) {
			allFiles = false
			break
		}

		// FileExists is true only for regular files
		exists, err := fileReader.FileExists(path)
		if err != nil || !exists {
			allFiles = false
			break
		}
	}

	if allFiles {
		return paths, nil
	}

	return fileReader.CollectMethodFiles(paths, recursive, includePatterns, excludePatterns)
}
